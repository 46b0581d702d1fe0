package filter

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

// ConstraintsAreMetFilter drops every item whose date/time/day-of-week
// constraints -- its own, and every ancestor Set's -- aren't met right
// now. Constraints that don't apply to a date/time condition (priority,
// preferred duration, playback) are skipped rather than treated as a
// failure.
type ConstraintsAreMetFilter struct {
	now func() time.Time
	log zerolog.Logger
}

// NewConstraintsAreMetFilter builds a ConstraintsAreMetFilter testing
// against the current moment at each call.
func NewConstraintsAreMetFilter(log zerolog.Logger) *ConstraintsAreMetFilter {
	return &ConstraintsAreMetFilter{now: time.Now, log: log}
}

func (f *ConstraintsAreMetFilter) Name() string { return "ConstraintsAreMetFilter" }

func (f *ConstraintsAreMetFilter) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	cond := contentmodel.DateTimeCondition{At: f.now()}
	return PruneDepthFirst(set, func(item *contentmodel.Item, ancestors []contentmodel.Constraint) bool {
		all := append(append([]contentmodel.Constraint(nil), ancestors...), item.ConstraintSet...)
		return contentmodel.ConstraintsAreMet(all, cond, true)
	})
}
