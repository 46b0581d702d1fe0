package lottery

import (
	"math"
	"math/rand"
	"time"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
	"github.com/cuemby/yarelycore/pkg/filter"
)

// RatioAllocator is the default ticket allocator: it scales each item's
// PlaybackConstraint ratio against its siblings and ancestors (see
// scaledRatiosByItem), revises that ratio by duration so that a short
// high-ratio item doesn't starve a long one of comparable weight, and
// allocates tickets proportionally -- shuffled first so a budget that
// doesn't divide evenly doesn't always shortchange the same item, with a
// floor of one ticket per item and the last item in the shuffled order
// taking whatever the rounding leaves over.
type RatioAllocator struct {
	rng             *rand.Rand
	defaultDuration time.Duration
}

// NewRatioAllocator returns a RatioAllocator that falls back to
// defaultDuration for items with no PreferredDurationConstraint.
func NewRatioAllocator(defaultDuration time.Duration) *RatioAllocator {
	return &RatioAllocator{
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
		defaultDuration: defaultDuration,
	}
}

func (a *RatioAllocator) Name() string { return "RatioAllocator" }

func (a *RatioAllocator) AllocateTickets(cds *contentmodel.Set, ticketCount int) []contentmodel.Ticket {
	items := filter.Items(cds)
	if len(items) == 0 {
		return nil
	}

	scaled := scaledRatiosByItem(cds)

	durations := make(map[*contentmodel.Item]float64, len(items))
	var totalDuration float64
	for _, item := range items {
		d := itemDuration(item, a.defaultDuration).Seconds()
		durations[item] = d
		totalDuration += d
	}

	type pair struct {
		item  *contentmodel.Item
		ratio float64
	}
	pairs := make([]pair, len(items))
	var totalRevised float64
	for i, item := range items {
		revised := scaled[item] * totalDuration / durations[item]
		pairs[i] = pair{item: item, ratio: revised}
		totalRevised += revised
	}
	for i := range pairs {
		pairs[i].ratio /= totalRevised
	}

	a.rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })

	var tickets []contentmodel.Ticket
	remaining := ticketCount
	for i, p := range pairs {
		if remaining <= 0 {
			break
		}
		count := int(math.Round(float64(ticketCount) * p.ratio))
		// Hold back one ticket for every item still to come; the last
		// item takes whatever is left.
		if reserve := len(pairs) - 1 - i; count > remaining-reserve {
			count = remaining - reserve
		}
		if i == len(pairs)-1 {
			count = remaining
		}
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			tickets = append(tickets, contentmodel.Ticket{AssignedItem: p.item})
		}
		remaining -= count
	}
	return tickets
}

// scaledRatiosByItem computes every leaf item's final scaled
// PlaybackConstraint ratio: starting from the root with a ratio of 1, at
// each Set the children's explicit ratios are passed through
// contentmodel.ScaledRatios to split that Set's share among them, and the
// result is threaded down as the parent ratio for the next level.
func scaledRatiosByItem(cds *contentmodel.Set) map[*contentmodel.Item]float64 {
	out := make(map[*contentmodel.Item]float64)
	walkScaledRatios(cds, 1, out)
	return out
}

func walkScaledRatios(set *contentmodel.Set, parentRatio float64, out map[*contentmodel.Item]float64) {
	if set == nil || len(set.Children) == 0 {
		return
	}

	explicit := make([]*float64, len(set.Children))
	for i, child := range set.Children {
		explicit[i] = unscaledRatioOf(child)
	}
	shares := contentmodel.ScaledRatios(explicit, parentRatio)

	for i, child := range set.Children {
		switch v := child.(type) {
		case *contentmodel.Item:
			out[v] = shares[i]
		case *contentmodel.Set:
			walkScaledRatios(v, shares[i], out)
		}
	}
}

// unscaledRatioOf returns node's own declared PlaybackConstraint ratio,
// never an ancestor's or sibling's.
func unscaledRatioOf(node contentmodel.Node) *float64 {
	for _, c := range node.Constraints() {
		if pb, ok := c.(contentmodel.PlaybackConstraint); ok && pb.Ratio != nil {
			return pb.Ratio
		}
	}
	return nil
}
