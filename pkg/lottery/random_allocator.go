package lottery

import (
	"math/rand"
	"time"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/filter"
)

// RandomAllocator hands every ticket to an independently, uniformly
// random content item. It makes no guarantee that every item gets a
// ticket, or that any two items get a comparable share.
type RandomAllocator struct {
	rng *rand.Rand
}

// NewRandomAllocator returns a RandomAllocator seeded from the current
// time.
func NewRandomAllocator() *RandomAllocator {
	return &RandomAllocator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (a *RandomAllocator) Name() string { return "RandomAllocator" }

func (a *RandomAllocator) AllocateTickets(cds *contentmodel.Set, ticketCount int) []contentmodel.Ticket {
	items := filter.Items(cds)
	if len(items) == 0 {
		return nil
	}

	tickets := make([]contentmodel.Ticket, ticketCount)
	for i := range tickets {
		tickets[i].AssignedItem = items[a.rng.Intn(len(items))]
	}
	return tickets
}
