package contextstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "context.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

func TestStore_AddContextRejectsUnsupportedType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddContext(ContextType("unknown_type"), "<content-item/>")
	assert.ErrorIs(t, err, ErrUnsupportedContextType)
}

func TestStore_AddContextAcceptsEachSupportedType(t *testing.T) {
	s := newTestStore(t)
	for _, ct := range []ContextType{TypeSensorUpdate, TypeTouchInput, TypePageview, TypeContentTrigger} {
		id, err := s.AddContext(ct, "<content-item/>")
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))
	}
}

func TestStore_GetLatestByTypeReturnsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddContext(TypeTouchInput, "<content-item id=\"1\"/>")
	require.NoError(t, err)
	_, err = s.AddContext(TypeTouchInput, "<content-item id=\"2\"/>")
	require.NoError(t, err)

	records, err := s.GetLatestByType(TypeTouchInput, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, `<content-item id="2"/>`, records[0].ContentItemXML)
	assert.Equal(t, `<content-item id="1"/>`, records[1].ContentItemXML)
}

func TestStore_GetLatestByTypeRespectsLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		_, err := s.AddContext(TypePageview, "<content-item/>")
		require.NoError(t, err)
	}

	records, err := s.GetLatestByType(TypePageview, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStore_GetLatestByTypeOnlyReturnsThatType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddContext(TypeTouchInput, "<content-item/>")
	require.NoError(t, err)
	_, err = s.AddContext(TypePageview, "<content-item/>")
	require.NoError(t, err)

	records, err := s.GetLatestByType(TypeTouchInput, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, TypeTouchInput, records[0].ContextType)
}

func TestStore_GetLatestByTypeRejectsUnsupportedType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetLatestByType(ContextType("unknown_type"), 1)
	assert.ErrorIs(t, err, ErrUnsupportedContextType)
}

func TestStore_ContentItemsByRecencyOrdersDistinctItemsByLastPlay(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AddContext(TypePageview, `<content-item id="1"/>`)
	require.NoError(t, err)
	_, err = s.AddContext(TypePageview, `<content-item id="2"/>`)
	require.NoError(t, err)
	_, err = s.AddContext(TypePageview, `<content-item id="1"/>`)
	require.NoError(t, err)

	xmls, err := s.ContentItemsByRecency(TypePageview, 10)
	require.NoError(t, err)
	require.Len(t, xmls, 2)
	assert.Equal(t, `<content-item id="1"/>`, xmls[0])
	assert.Equal(t, `<content-item id="2"/>`, xmls[1])
}

func TestStore_ContentItemsByRecencyRejectsUnsupportedType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ContentItemsByRecency(ContextType("unknown_type"), 10)
	assert.ErrorIs(t, err, ErrUnsupportedContextType)
}
