package lottery

import (
	"math"
	"sort"
	"time"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/filter"
)

// DurationSortOrder picks which end of the duration spectrum
// DurationBasedAllocator favours once every item has its guaranteed
// ticket.
type DurationSortOrder int

const (
	// FavourLongItems gives longer items the larger share of the
	// proportional phase. This is the allocator's default.
	FavourLongItems DurationSortOrder = iota
	FavourShortItems
)

// DurationBasedAllocator allocates tickets proportional to each item's
// duration: every item is first guaranteed one ticket (in
// favoured-duration order, so a starved budget favours the preferred
// items), then the remaining tickets are split proportionally to
// duration, with the last item absorbing whatever rounding leaves over.
type DurationBasedAllocator struct {
	defaultDuration time.Duration
	sortOrder       DurationSortOrder
}

// NewDurationBasedAllocator returns a DurationBasedAllocator that falls
// back to defaultDuration for items with no PreferredDurationConstraint.
func NewDurationBasedAllocator(defaultDuration time.Duration, sortOrder DurationSortOrder) *DurationBasedAllocator {
	return &DurationBasedAllocator{defaultDuration: defaultDuration, sortOrder: sortOrder}
}

func (a *DurationBasedAllocator) Name() string { return "DurationBasedAllocator" }

func (a *DurationBasedAllocator) AllocateTickets(cds *contentmodel.Set, ticketCount int) []contentmodel.Ticket {
	items := filter.Items(cds)
	if len(items) == 0 {
		return nil
	}

	type pair struct {
		item     *contentmodel.Item
		duration float64
	}
	pairs := make([]pair, len(items))
	for i, item := range items {
		pairs[i] = pair{item: item, duration: itemDuration(item, a.defaultDuration).Seconds()}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].duration < pairs[j].duration })
	if a.sortOrder == FavourLongItems {
		for i, j := 0, len(pairs)-1; i < j; i, j = i+1, j-1 {
			pairs[i], pairs[j] = pairs[j], pairs[i]
		}
	}

	var tickets []contentmodel.Ticket
	remaining := ticketCount

	// Guarantee every item at least one ticket, if the budget allows.
	for _, p := range pairs {
		if remaining <= 0 {
			break
		}
		tickets = append(tickets, contentmodel.Ticket{AssignedItem: p.item})
		remaining--
	}
	if remaining <= 0 {
		return tickets
	}

	var totalDuration float64
	for _, p := range pairs {
		totalDuration += p.duration
	}
	ticketsPerSecond := float64(remaining) / totalDuration

	for i, p := range pairs {
		if remaining <= 0 {
			break
		}
		count := int(math.Round(ticketsPerSecond * p.duration))
		if count > remaining {
			count = remaining
		}
		if i == len(pairs)-1 {
			count = remaining
		}
		for k := 0; k < count; k++ {
			tickets = append(tickets, contentmodel.Ticket{AssignedItem: p.item})
		}
		remaining -= count
	}
	return tickets
}
