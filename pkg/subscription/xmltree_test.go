package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElement_RoundTripsAttrsAndChildren(t *testing.T) {
	raw := `<content-set type="remote" id="42"><requires-file><sources><uri>file:///a</uri></sources></requires-file></content-set>`

	el, err := ParseElement(raw)
	require.NoError(t, err)
	assert.Equal(t, "content-set", el.XMLName.Local)

	typ, ok := el.Attr("type")
	assert.True(t, ok)
	assert.Equal(t, "remote", typ)

	rf := el.Find("requires-file")
	require.NotNil(t, rf)
	sources := rf.Find("sources")
	require.NotNil(t, sources)
	uris := sources.FindAll("uri")
	require.Len(t, uris, 1)
	assert.Equal(t, "file:///a", uris[0].Text())
}

func TestElement_SetAttrReplacesExisting(t *testing.T) {
	el := &Element{}
	el.SetAttr("uri", "first")
	el.SetAttr("uri", "second")

	val, ok := el.Attr("uri")
	assert.True(t, ok)
	assert.Equal(t, "second", val)
	assert.Len(t, el.Attrs, 1)
}

func TestElement_FindAllReturnsOnlyDirectMatches(t *testing.T) {
	raw := `<a><b/><c><b/></c><b/></a>`
	el, err := ParseElement(raw)
	require.NoError(t, err)

	assert.Len(t, el.FindAll("b"), 2)
}

func TestElement_ReplaceSwapsChildInPlace(t *testing.T) {
	raw := `<a><placeholder/></a>`
	el, err := ParseElement(raw)
	require.NoError(t, err)

	replacement := &Element{XMLName: el.Children[0].XMLName}
	replacement.XMLName.Local = "resolved"
	el.Replace(0, replacement)

	assert.Equal(t, "resolved", el.Children[0].XMLName.Local)
}

func TestElement_EncodeProducesParsableXML(t *testing.T) {
	original, err := ParseElement(`<content-set type="inline"><content-item size="5"/></content-set>`)
	require.NoError(t, err)

	encoded, err := original.Encode()
	require.NoError(t, err)

	reparsed, err := ParseElement(encoded)
	require.NoError(t, err)
	assert.Equal(t, "content-set", reparsed.XMLName.Local)
	assert.Len(t, reparsed.Children, 1)
}
