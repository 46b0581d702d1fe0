package contentmodel

import (
	"time"
)

// Priority is a content item's scheduling priority level. The zero value
// is PriorityLowest; DefaultPriority names the actual default.
type Priority int

const (
	PriorityLowest Priority = iota
	PriorityLow
	PriorityMedium
	PriorityHigh
	PriorityHighest
)

// DefaultPriority is the priority an item without a PriorityConstraint is
// treated as carrying.
const DefaultPriority = PriorityMedium

// PlaybackOrder names how an allocator not otherwise configured should walk
// siblings that share a PlaybackConstraint.
type PlaybackOrder string

const (
	PlaybackRandom       PlaybackOrder = "random"
	PlaybackInOrder      PlaybackOrder = "inorder"
	PlaybackReverseOrder PlaybackOrder = "reverseorder"
)

// Condition is the runtime value a Constraint is tested against. A
// Constraint dispatches on the concrete Condition type it receives; a
// mismatched pairing (e.g. a PriorityConstraint given a DateTimeCondition)
// reports "not implemented" rather than false, per the three-state
// met/not-met/not-applicable semantics of the source system.
type Condition interface {
	isCondition()
}

// DateTimeCondition is a moment in time. A nil receiver method is never
// used; construct with Now() for "at the current moment".
type DateTimeCondition struct {
	At time.Time
}

func (DateTimeCondition) isCondition() {}

// Now returns a DateTimeCondition for the current instant.
func Now() DateTimeCondition { return DateTimeCondition{At: time.Now()} }

// PriorityCondition is a priority level to test a PriorityConstraint
// against.
type PriorityCondition struct {
	Level Priority
}

func (PriorityCondition) isCondition() {}

// Constraint is implemented by every constraint variant. IsMet reports
// whether the constraint holds for the given condition; implemented
// reports whether this (constraint, condition) pairing is meaningful at
// all — false means "not implemented / not applicable", distinct from a
// met=false verdict, mirroring ConstraintNotImplementedError in the source.
type Constraint interface {
	IsMet(cond Condition) (met bool, implemented bool)
}

// DateConstraint holds between two calendar dates, inclusive on both ends.
type DateConstraint struct {
	Start time.Time
	End   time.Time
}

func (c DateConstraint) IsMet(cond Condition) (bool, bool) {
	dt, ok := cond.(DateTimeCondition)
	if !ok {
		return false, false
	}
	d := dateOnly(dt.At)
	return !d.Before(dateOnly(c.Start)) && !d.After(dateOnly(c.End)), true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TimeConstraint holds between two times-of-day: inclusive of start,
// strictly less than end.
type TimeConstraint struct {
	Start time.Duration // offset since local midnight
	End   time.Duration
}

func (c TimeConstraint) IsMet(cond Condition) (bool, bool) {
	dt, ok := cond.(DateTimeCondition)
	if !ok {
		return false, false
	}
	tod := timeOfDay(dt.At)
	return tod >= c.Start && tod < c.End, true
}

func timeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// DayOfWeekConstraint holds either a single between(start-day, end-day)
// span, or a distinct time-of-day window per weekday. Exactly one of
// BetweenDays/PerWeekday is populated, matching the two XML shapes §6
// allows. Monday = 0, matching Go's time.Monday numbering shifted to 0.
type DayOfWeekConstraint struct {
	// BetweenDays, when non-nil, means "every day between StartDay and
	// EndDay inclusive, all day".
	BetweenDays *DayRange
	// PerWeekday, when non-nil, holds one optional time window per weekday
	// (index 0 = Monday .. 6 = Sunday); a nil entry means that weekday is
	// not permitted at all.
	PerWeekday [7]*TimeConstraint
}

// DayRange is an inclusive weekday range, Monday = 0 .. Sunday = 6.
type DayRange struct {
	StartDay int
	EndDay   int
}

func (c DayOfWeekConstraint) IsMet(cond Condition) (bool, bool) {
	dt, ok := cond.(DateTimeCondition)
	if !ok {
		return false, false
	}
	weekday := mondayIndex(dt.At.Weekday())

	if c.BetweenDays != nil {
		return dayInRange(weekday, c.BetweenDays.StartDay, c.BetweenDays.EndDay), true
	}

	window := c.PerWeekday[weekday]
	if window == nil {
		return false, true
	}
	return window.IsMet(dt)
}

func mondayIndex(d time.Weekday) int {
	// time.Sunday == 0; shift so Monday == 0 .. Sunday == 6.
	return (int(d) + 6) % 7
}

func dayInRange(day, start, end int) bool {
	if start <= end {
		return day >= start && day <= end
	}
	// wraps around the week, e.g. fri..mon
	return day >= start || day <= end
}

// PriorityConstraint holds when the tested priority exactly equals Level.
// A nil/absent PriorityCondition is "not implemented", matching the
// source's refusal to evaluate a priority constraint without a priority
// condition.
type PriorityConstraint struct {
	Level Priority
}

func (c PriorityConstraint) IsMet(cond Condition) (bool, bool) {
	pc, ok := cond.(PriorityCondition)
	if !ok {
		return false, false
	}
	return pc.Level == c.Level, true
}

// PreferredDurationConstraint never gates filtering; it informs duration
// selection in the Scheduling Manager. IsMet always reports "not
// implemented" — it participates in constraints_are_met checks as a no-op.
type PreferredDurationConstraint struct {
	Seconds float64
}

func (PreferredDurationConstraint) IsMet(Condition) (bool, bool) {
	return false, false
}

// PlaybackConstraint never gates filtering; its Ratio/Order/
// AvoidContextSwitch are scheduler/allocator hints consumed directly by
// pkg/lottery and pkg/scheduling, not tested against a Condition.
type PlaybackConstraint struct {
	Order              PlaybackOrder
	Ratio              *float64 // nil = unspecified
	AvoidContextSwitch bool
}

func (PlaybackConstraint) IsMet(Condition) (bool, bool) {
	return false, false
}

// ConstraintsAreMet reports whether every constraint in the slice holds
// against cond. allowUnknowns controls how "not implemented" constraints
// are treated: when true (the filter pipeline's default), an
// unimplemented pairing is skipped rather than failing the whole set; when
// false, any unimplemented pairing fails the set.
func ConstraintsAreMet(constraints []Constraint, cond Condition, allowUnknowns bool) bool {
	for _, c := range constraints {
		met, implemented := c.IsMet(cond)
		if !implemented {
			if allowUnknowns {
				continue
			}
			return false
		}
		if !met {
			return false
		}
	}
	return true
}
