package filter

import "github.com/cuemby/yarelycore/pkg/contentmodel"

// CloneSet deep-copies set and every descendant, so a filter can prune the
// copy without mutating whatever the caller (or an earlier pipeline step)
// still holds a reference to.
func CloneSet(set *contentmodel.Set) *contentmodel.Set {
	if set == nil {
		return nil
	}
	clone := *set
	clone.ConstraintSet = append([]contentmodel.Constraint(nil), set.ConstraintSet...)
	if set.RequiresFile != nil {
		rf := *set.RequiresFile
		clone.RequiresFile = &rf
	}
	clone.Children = make([]contentmodel.Node, len(set.Children))
	for i, child := range set.Children {
		clone.Children[i] = cloneNode(child)
	}
	return &clone
}

// CloneItem deep-copies a single leaf item.
func CloneItem(item *contentmodel.Item) *contentmodel.Item {
	if item == nil {
		return nil
	}
	clone := *item
	clone.ConstraintSet = append([]contentmodel.Constraint(nil), item.ConstraintSet...)
	clone.RequiresFiles = append([]contentmodel.RequiresFile(nil), item.RequiresFiles...)
	return &clone
}

func cloneNode(n contentmodel.Node) contentmodel.Node {
	switch v := n.(type) {
	case *contentmodel.Set:
		return CloneSet(v)
	case *contentmodel.Item:
		return CloneItem(v)
	default:
		return n
	}
}

// Items flattens every leaf Item reachable from n, in document order.
func Items(n contentmodel.Node) []*contentmodel.Item {
	switch v := n.(type) {
	case *contentmodel.Item:
		if v == nil {
			return nil
		}
		return []*contentmodel.Item{v}
	case *contentmodel.Set:
		if v == nil {
			return nil
		}
		var out []*contentmodel.Item
		for _, child := range v.Children {
			out = append(out, Items(child)...)
		}
		return out
	default:
		return nil
	}
}

// CountItems is the eligible-item count the pipeline checks after every
// step; a count of zero means the step emptied the set entirely.
func CountItems(n contentmodel.Node) int {
	return len(Items(n))
}

// KeepFunc decides whether a leaf item survives a depth-first prune.
// ancestorConstraints holds every constraint declared by item's ancestor
// Sets, root-most first -- needed by filters (ConstraintsAreMetFilter,
// PriorityFilter) that test constraints which recurse up the tree.
type KeepFunc func(item *contentmodel.Item, ancestorConstraints []contentmodel.Constraint) bool

// PruneDepthFirst walks a deep copy of set, keeping only leaf items keep
// accepts. Interior Sets are never removed even if every child under
// them is pruned away, matching DepthFirstFilter's
// _remove_recursively (only ContentItem leaves are ever deleted from
// their parent's child list). Returns nil once no leaf item survives
// anywhere in the tree, the "no eligible items" result every filter step
// and the pipeline check for.
func PruneDepthFirst(set *contentmodel.Set, keep KeepFunc) *contentmodel.Set {
	clone := CloneSet(set)
	pruneSet(clone, nil, keep)
	if CountItems(clone) == 0 {
		return nil
	}
	return clone
}

func pruneSet(set *contentmodel.Set, ancestors []contentmodel.Constraint, keep KeepFunc) {
	if set == nil {
		return
	}
	combined := append(append([]contentmodel.Constraint(nil), ancestors...), set.ConstraintSet...)

	kept := set.Children[:0]
	for _, child := range set.Children {
		switch v := child.(type) {
		case *contentmodel.Item:
			if keep(v, combined) {
				kept = append(kept, v)
			}
		case *contentmodel.Set:
			pruneSet(v, combined, keep)
			kept = append(kept, v)
		}
	}
	set.Children = kept
}
