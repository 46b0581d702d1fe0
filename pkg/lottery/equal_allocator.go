package lottery

import (
	"math/rand"
	"time"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/filter"
)

// EqualDistributionAllocator walks the ticket budget round-robin across a
// shuffled item order, so every item gets the same number of tickets (up
// to a difference of one when the budget doesn't divide evenly).
type EqualDistributionAllocator struct {
	rng *rand.Rand
}

// NewEqualDistributionAllocator returns an EqualDistributionAllocator
// seeded from the current time.
func NewEqualDistributionAllocator() *EqualDistributionAllocator {
	return &EqualDistributionAllocator{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (a *EqualDistributionAllocator) Name() string { return "EqualDistributionAllocator" }

func (a *EqualDistributionAllocator) AllocateTickets(cds *contentmodel.Set, ticketCount int) []contentmodel.Ticket {
	items := filter.Items(cds)
	if len(items) == 0 {
		return nil
	}

	shuffled := make([]*contentmodel.Item, len(items))
	copy(shuffled, items)
	a.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	tickets := make([]contentmodel.Ticket, ticketCount)
	pointer := 0
	for i := range tickets {
		tickets[i].AssignedItem = shuffled[pointer]
		pointer = (pointer + 1) % len(shuffled)
	}
	return tickets
}
