package lottery

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/contextstore"
	"github.com/cuemby/yarelycore/pkg/filter"
)

// RecencyBasedAllocator biases tickets toward whichever item has gone
// longest without being played: it halves the remaining budget onto the
// least-recently-played item in turn, walking the list circularly until
// every ticket is spent. An item absent from the pageview history entirely
// is treated as the most overdue of all -- it comes before every item
// with a play record.
type RecencyBasedAllocator struct {
	store *contextstore.Store
	log   zerolog.Logger
}

// pageviewHistoryLimit bounds how many distinct recently-played content
// items are pulled back from the context store per allocation.
const pageviewHistoryLimit = 1000

// NewRecencyBasedAllocator returns a RecencyBasedAllocator reading
// pageview history from store.
func NewRecencyBasedAllocator(store *contextstore.Store, log zerolog.Logger) *RecencyBasedAllocator {
	return &RecencyBasedAllocator{
		store: store,
		log:   log.With().Str("allocator", "RecencyBasedAllocator").Logger(),
	}
}

func (a *RecencyBasedAllocator) Name() string { return "RecencyBasedAllocator" }

func (a *RecencyBasedAllocator) AllocateTickets(cds *contentmodel.Set, ticketCount int) []contentmodel.Ticket {
	items := filter.Items(cds)
	if len(items) == 0 {
		return nil
	}

	byXML := make(map[string]*contentmodel.Item, len(items))
	for _, item := range items {
		byXML[item.RawXML] = item
	}

	playedMostRecentFirst, err := a.store.ContentItemsByRecency(contextstore.TypePageview, pageviewHistoryLimit)
	if err != nil {
		a.log.Warn().Err(err).Msg("could not read pageview history, treating every item as unplayed")
		playedMostRecentFirst = nil
	}

	order := make([]*contentmodel.Item, 0, len(items))
	seen := make(map[*contentmodel.Item]bool, len(items))
	for i := len(playedMostRecentFirst) - 1; i >= 0; i-- {
		item, ok := byXML[playedMostRecentFirst[i]]
		if !ok || seen[item] {
			continue
		}
		order = append(order, item)
		seen[item] = true
	}

	for _, item := range items {
		if seen[item] {
			continue
		}
		order = append([]*contentmodel.Item{item}, order...)
	}

	var tickets []contentmodel.Ticket
	remaining := ticketCount
	pointer := 0
	for remaining > 0 {
		count := (remaining+1)/2 + 1
		if count > remaining {
			count = remaining
		}
		for i := 0; i < count; i++ {
			tickets = append(tickets, contentmodel.Ticket{AssignedItem: order[pointer]})
		}
		remaining -= count
		pointer = (pointer + 1) % len(order)
	}
	return tickets
}
