package lottery

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
)

func newRecencyTestStore(t *testing.T) *contextstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "context.db")
	store, err := contextstore.NewStore(path)
	require.NoError(t, err)
	return store
}

func TestRecencyBasedAllocator_FavoursTheNeverPlayedItem(t *testing.T) {
	store := newRecencyTestStore(t)

	played := &contentmodel.Item{ContentType: "image/png", RawXML: `<content-item id="played"/>`}
	neverPlayed := &contentmodel.Item{ContentType: "video/mp4", RawXML: `<content-item id="fresh"/>`}
	cds := &contentmodel.Set{Children: []contentmodel.Node{played, neverPlayed}}

	_, err := store.AddContext(contextstore.TypePageview, played.RawXML)
	require.NoError(t, err)

	a := NewRecencyBasedAllocator(store, zerolog.Nop())
	tickets := a.AllocateTickets(cds, 100)
	require.Len(t, tickets, 100)

	counts := map[*contentmodel.Item]int{}
	for _, ticket := range tickets {
		counts[ticket.AssignedItem]++
	}
	assert.Greater(t, counts[neverPlayed], counts[played])
}

func TestRecencyBasedAllocator_FavoursTheLeastRecentlyPlayedItem(t *testing.T) {
	store := newRecencyTestStore(t)

	stale := &contentmodel.Item{ContentType: "image/png", RawXML: `<content-item id="stale"/>`}
	fresh := &contentmodel.Item{ContentType: "video/mp4", RawXML: `<content-item id="fresh"/>`}
	cds := &contentmodel.Set{Children: []contentmodel.Node{stale, fresh}}

	_, err := store.AddContext(contextstore.TypePageview, stale.RawXML)
	require.NoError(t, err)
	_, err = store.AddContext(contextstore.TypePageview, fresh.RawXML)
	require.NoError(t, err)

	a := NewRecencyBasedAllocator(store, zerolog.Nop())
	tickets := a.AllocateTickets(cds, 100)

	counts := map[*contentmodel.Item]int{}
	for _, ticket := range tickets {
		counts[ticket.AssignedItem]++
	}
	assert.Greater(t, counts[stale], counts[fresh])
}

func TestRecencyBasedAllocator_ReturnsNothingForAnEmptySet(t *testing.T) {
	store := newRecencyTestStore(t)
	a := NewRecencyBasedAllocator(store, zerolog.Nop())
	assert.Nil(t, a.AllocateTickets(&contentmodel.Set{}, 100))
}
