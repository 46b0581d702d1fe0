package subscription

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscription.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

const inlineDoc = `<subscription-update uri="file:///root.xml">
  <content-set type="inline">
    <content-item content-type="image/png" size="1024">
      <requires-file>
        <sources><uri>file:///a.png</uri></sources>
      </requires-file>
    </content-item>
  </content-set>
</subscription-update>`

func remoteDoc(childURI string) string {
	return `<subscription-update uri="file:///root.xml">
  <content-set type="inline">
    <content-set type="remote">
      <requires-file>
        <sources><uri>` + childURI + `</uri></sources>
      </requires-file>
    </content-set>
  </content-set>
</subscription-update>`
}

func TestStore_SaveRootInsertsNewXML(t *testing.T) {
	s := newTestStore(t)

	xmlID, err := s.SaveRoot("file:///root.xml", inlineDoc)
	require.NoError(t, err)
	assert.NotEmpty(t, xmlID)

	found, ok, err := s.LookupXMLIDByURI("file:///root.xml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, xmlID, found)
}

func TestStore_SaveRootUpdatesExistingRowOnSecondCall(t *testing.T) {
	s := newTestStore(t)

	firstID, err := s.SaveRoot("file:///root.xml", inlineDoc)
	require.NoError(t, err)

	secondID, err := s.SaveRoot("file:///root.xml", inlineDoc)
	require.NoError(t, err)

	assert.Equal(t, firstID, secondID)
}

func TestStore_SaveRootPreRegistersRemoteChildURI(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveRoot("file:///root.xml", remoteDoc("file:///child.xml"))
	require.NoError(t, err)

	childID, ok, err := s.LookupXMLIDByURI("file:///child.xml")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, childID)
}

func TestStore_ReassembleSplicesChildIntoParent(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SaveRoot("file:///root.xml", remoteDoc("file:///child.xml"))
	require.NoError(t, err)

	childDoc := `<subscription-update uri="file:///child.xml">
  <content-set type="inline">
    <content-item content-type="image/png" size="10">
      <requires-file><sources><uri>file:///leaf.png</uri></sources></requires-file>
    </content-item>
  </content-set>
</subscription-update>`
	childID, err := s.SaveRoot("file:///child.xml", childDoc)
	require.NoError(t, err)

	rootID, ok, err := s.LookupXMLIDByURI("file:///root.xml")
	require.NoError(t, err)
	require.True(t, ok)

	tree, err := s.Reassemble(rootID)
	require.NoError(t, err)
	require.NotNil(t, tree)

	encoded, err := tree.Encode()
	require.NoError(t, err)
	assert.Contains(t, encoded, "leaf.png")
	assert.Contains(t, encoded, "image/png")
	assert.NotEmpty(t, childID)
}

func TestStore_ReassembleReturnsNilWhenChildMissing(t *testing.T) {
	s := newTestStore(t)

	rootID, err := s.SaveRoot("file:///root.xml", remoteDoc("file:///missing-child.xml"))
	require.NoError(t, err)

	tree, err := s.Reassemble(rootID)
	require.NoError(t, err)
	assert.Nil(t, tree)
}

func TestStore_ReassembleMergesPlaceholderConstraints(t *testing.T) {
	s := newTestStore(t)

	docWithConstraints := `<subscription-update uri="file:///root.xml">
  <content-set type="inline">
    <content-set type="remote">
      <requires-file><sources><uri>file:///child.xml</uri></sources></requires-file>
      <constraints><scheduling-constraints><priority level="HIGH"/></scheduling-constraints></constraints>
    </content-set>
  </content-set>
</subscription-update>`
	_, err := s.SaveRoot("file:///root.xml", docWithConstraints)
	require.NoError(t, err)

	childDoc := `<subscription-update uri="file:///child.xml">
  <content-set type="inline">
    <content-item content-type="image/png" size="10">
      <requires-file><sources><uri>file:///leaf.png</uri></sources></requires-file>
    </content-item>
  </content-set>
</subscription-update>`
	_, err = s.SaveRoot("file:///child.xml", childDoc)
	require.NoError(t, err)

	rootID, _, err := s.LookupXMLIDByURI("file:///root.xml")
	require.NoError(t, err)

	tree, err := s.Reassemble(rootID)
	require.NoError(t, err)
	require.NotNil(t, tree)

	encoded, err := tree.Encode()
	require.NoError(t, err)
	assert.True(t, strings.Contains(encoded, `level="HIGH"`))
}
