package filter

import (
	"github.com/rs/zerolog"

	"github.com/cuemby/yarelycore/pkg/contentmodel"
)

// priorityLevelsHighToLow is every Priority level from highest to
// lowest, the order priority_filter.py's ALL_PRIORITIES walk checks.
var priorityLevelsHighToLow = []contentmodel.Priority{
	contentmodel.PriorityHighest,
	contentmodel.PriorityHigh,
	contentmodel.PriorityMedium,
	contentmodel.PriorityLow,
	contentmodel.PriorityLowest,
}

// PriorityFilter keeps only the highest-priority items still eligible.
// It walks priority levels from highest to lowest and stops at the
// first level with at least one eligible item; an item with no
// PriorityConstraint of its own (or inherited from an ancestor) is
// treated as carrying contentmodel.DefaultPriority, so it's only
// eligible at that one level.
type PriorityFilter struct {
	log zerolog.Logger
}

// NewPriorityFilter builds a PriorityFilter.
func NewPriorityFilter(log zerolog.Logger) *PriorityFilter {
	return &PriorityFilter{log: log}
}

func (f *PriorityFilter) Name() string { return "PriorityFilter" }

func (f *PriorityFilter) FilterCDS(set *contentmodel.Set) *contentmodel.Set {
	for _, level := range priorityLevelsHighToLow {
		cond := contentmodel.PriorityCondition{Level: level}
		filtered := PruneDepthFirst(set, func(item *contentmodel.Item, ancestors []contentmodel.Constraint) bool {
			all := append(append([]contentmodel.Constraint(nil), ancestors...), item.ConstraintSet...)
			return priorityConstraintsMet(all, cond)
		})

		if n := CountItems(filtered); n > 0 {
			f.log.Debug().Int("priority_level", int(level)).Int("items", n).Msg("stopping at priority level")
			return filtered
		}
	}
	return set
}

// priorityConstraintsMet reports whether constraints are satisfied
// against cond. Non-priority constraints are skipped (they don't apply
// to a PriorityCondition); if no PriorityConstraint applied at all, the
// item is only kept at the default priority level.
func priorityConstraintsMet(constraints []contentmodel.Constraint, cond contentmodel.PriorityCondition) bool {
	applicable := false
	for _, c := range constraints {
		met, implemented := c.IsMet(cond)
		if !implemented {
			continue
		}
		applicable = true
		if !met {
			return false
		}
	}
	if !applicable {
		return cond.Level == contentmodel.DefaultPriority
	}
	return true
}
