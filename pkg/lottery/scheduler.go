package lottery

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

const (
	// DefaultTicketCount is the ticket budget the Scheduling Manager wires
	// up for RatioAllocator when no override is configured.
	DefaultTicketCount = 1000
	// AllocatorTimeout bounds how long the Scheduler waits for every
	// allocator to report ready before drawing from whatever tickets have
	// been delivered so far.
	AllocatorTimeout = 15 * time.Second
)

// AllocatorSpec pairs an Allocator with the ticket budget it's dispatched
// with.
type AllocatorSpec struct {
	Allocator Allocator
	Tickets   int
}

// Scheduler runs a set of ticket allocators concurrently against a
// filtered CDS and draws a winning item from the pooled result. Each
// allocator runs in its own goroutine; the Scheduler never blocks past
// AllocatorTimeout waiting on a slow one, matching the source system's
// note that ticket allocation may be cut short at any time.
type Scheduler struct {
	allocators []AllocatorSpec
	timeout    time.Duration
	log        zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScheduler returns a Scheduler running specs, or -- if specs is empty
// -- the default configuration: RatioAllocator alone with a
// DefaultTicketCount ticket budget.
func NewScheduler(log zerolog.Logger, defaultDuration time.Duration, specs ...AllocatorSpec) *Scheduler {
	if len(specs) == 0 {
		specs = []AllocatorSpec{
			{Allocator: NewRatioAllocator(defaultDuration), Tickets: DefaultTicketCount},
		}
	}
	return &Scheduler{
		allocators: specs,
		timeout:    AllocatorTimeout,
		log:        log.With().Str("component", "lottery").Logger(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetItemsToSchedule runs every allocator against cds, pools whatever
// tickets they deliver within the timeout, and draws numberOfItems
// winners (with replacement -- the same item may win more than once). It
// returns nil if cds has no eligible items or no allocator delivered a
// single filled ticket.
func (s *Scheduler) GetItemsToSchedule(cds *contentmodel.Set, numberOfItems int) []*contentmodel.Item {
	if cds == nil || numberOfItems <= 0 {
		return nil
	}

	resultCh := make(chan []contentmodel.Ticket, len(s.allocators))
	var wg sync.WaitGroup
	for _, spec := range s.allocators {
		wg.Add(1)
		go func(spec AllocatorSpec) {
			defer wg.Done()
			tickets := spec.Allocator.AllocateTickets(cds, spec.Tickets)
			for i := range tickets {
				tickets[i].Allocator = spec.Allocator.Name()
			}
			resultCh <- tickets
		}(spec)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.timeout):
		s.log.Warn().Msg("ticket allocators did not finish before the timeout, drawing from the partial pool")
	}

	var pool []contentmodel.Ticket
drain:
	for {
		select {
		case tickets := <-resultCh:
			pool = append(pool, tickets...)
		default:
			break drain
		}
	}

	var filled []contentmodel.Ticket
	for _, t := range pool {
		if t.AssignedItem != nil {
			filled = append(filled, t)
		}
	}
	if len(filled) == 0 {
		return nil
	}

	winners := make([]*contentmodel.Item, numberOfItems)
	for i := range winners {
		winners[i] = s.drawWinner(filled)
	}
	return winners
}

func (s *Scheduler) drawWinner(pool []contentmodel.Ticket) *contentmodel.Item {
	s.mu.Lock()
	idx := s.rng.Intn(len(pool))
	s.mu.Unlock()
	return pool[idx].AssignedItem
}
