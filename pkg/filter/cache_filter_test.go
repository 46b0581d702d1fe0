package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

func itemWithURI(contentType, uri string) *contentmodel.Item {
	return &contentmodel.Item{
		ContentType:   contentType,
		RequiresFiles: []contentmodel.RequiresFile{{Sources: []contentmodel.Source{{URI: uri}}}},
	}
}

func TestCacheFilter_KeepsUncachableAndAlreadyCachedItems(t *testing.T) {
	c := newTestCache(t)
	f := NewCacheFilter(c, zerolog.Nop())

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "a.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("bytes"), 0o644))
	cachedURI := "file://" + srcPath

	cachedItem := itemWithURI("image/png", cachedURI)
	_, err := c.Cache(cachedItem, cachedURI, false)
	require.NoError(t, err)

	webItem := itemWithURI("text/html", "https://example.com/page")

	set := &contentmodel.Set{Children: []contentmodel.Node{cachedItem, webItem}}

	filtered := f.FilterCDS(set)
	require.NotNil(t, filtered)
	assert.Len(t, Items(filtered), 2)
}

func TestCacheFilter_DropsNotYetCachedItem(t *testing.T) {
	c := newTestCache(t)
	f := NewCacheFilter(c, zerolog.Nop())

	uncached := itemWithURI("image/png", "file:///never/downloaded.png")
	set := &contentmodel.Set{Children: []contentmodel.Node{uncached}}

	assert.Nil(t, f.FilterCDS(set))
}
