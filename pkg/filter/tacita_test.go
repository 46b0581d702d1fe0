package filter

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
)

func TestTacitaFilter_PassesThroughWithNoRecentTrigger(t *testing.T) {
	store := newContextStoreForTest(t)
	f := NewTacitaFilter(store, zerolog.Nop())

	set := &contentmodel.Set{Children: []contentmodel.Node{
		itemWithURI("image/png", "file:///a.png"),
	}}

	assert.Same(t, set, f.FilterCDS(set))
}

func TestTacitaFilter_NarrowsByURIPrefix(t *testing.T) {
	store := newContextStoreForTest(t)
	triggerXML := "<content-item content-type=\"image/png\" size=\"1\"><requires-file><sources><uri>file:///campaign/</uri></sources></requires-file></content-item>"
	_, err := store.AddContext(contextstore.TypeContentTrigger, triggerXML)
	require.NoError(t, err)

	f := NewTacitaFilter(store, zerolog.Nop())

	matching := itemWithURI("image/png", "file:///campaign/a.png")
	other := itemWithURI("image/png", "file:///unrelated.png")
	set := &contentmodel.Set{Children: []contentmodel.Node{matching, other}}

	filtered := f.FilterCDS(set)
	require.NotNil(t, filtered)
	items := Items(filtered)
	require.Len(t, items, 1)
	assert.Equal(t, "file:///campaign/a.png", items[0].RequiresFiles[0].PrimaryURI())
}

func TestTacitaFilter_IgnoresTriggerNotPartOfThisCDS(t *testing.T) {
	store := newContextStoreForTest(t)
	triggerXML := "<content-item content-type=\"image/png\" size=\"1\"><requires-file><sources><uri>file:///campaign/</uri></sources></requires-file></content-item>"
	_, err := store.AddContext(contextstore.TypeContentTrigger, triggerXML)
	require.NoError(t, err)

	f := NewTacitaFilter(store, zerolog.Nop())

	set := &contentmodel.Set{Children: []contentmodel.Node{
		itemWithURI("image/png", "file:///unrelated.png"),
	}}

	assert.Same(t, set, f.FilterCDS(set))
}

func TestTacitaFilter_IgnoresTriggerOlderThanThreshold(t *testing.T) {
	store := newContextStoreForTest(t)
	triggerXML := "<content-item content-type=\"image/png\" size=\"1\"><requires-file><sources><uri>file:///campaign/</uri></sources></requires-file></content-item>"
	_, err := store.AddContext(contextstore.TypeContentTrigger, triggerXML)
	require.NoError(t, err)

	f := NewTacitaFilter(store, zerolog.Nop())
	f.now = func() time.Time { return time.Now().Add(time.Hour) }

	set := &contentmodel.Set{Children: []contentmodel.Node{
		itemWithURI("image/png", "file:///campaign/a.png"),
	}}

	assert.Same(t, set, f.FilterCDS(set))
}
