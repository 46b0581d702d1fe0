package lottery

import (
	"time"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

// Allocator hands out a share of ticketCount tickets across the content
// items reachable from cds. A returned Ticket's AssignedItem is never nil;
// an allocator with nothing to allocate to returns no tickets at all.
// Allocator implementations are not safe for concurrent reuse across
// simultaneous AllocateTickets calls on the same instance -- the Scheduler
// spawns one goroutine per AllocatorSpec, never two for the same spec.
type Allocator interface {
	Name() string
	AllocateTickets(cds *contentmodel.Set, ticketCount int) []contentmodel.Ticket
}

// itemDuration returns item's PreferredDurationConstraint, or
// defaultDuration if it declares none.
func itemDuration(item *contentmodel.Item, defaultDuration time.Duration) time.Duration {
	for _, c := range item.ConstraintSet {
		if pd, ok := c.(contentmodel.PreferredDurationConstraint); ok {
			return time.Duration(pd.Seconds * float64(time.Second))
		}
	}
	return defaultDuration
}
