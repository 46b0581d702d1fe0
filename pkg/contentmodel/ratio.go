package contentmodel

// ScaledRatios computes each sibling's final scaled ratio per the §3
// recursive invariant: siblings without an explicit PlaybackConstraint
// ratio share the remainder of the unallocated weight equally, the
// resulting per-sibling shares are renormalized to sum to 1, and a node's
// final ratio is its sibling share multiplied by its parent's final ratio
// (the root's parent-ratio is 1).
//
// explicit holds one entry per sibling, in sibling order: explicit[i] is
// the PlaybackConstraint ratio of the i-th sibling, or nil if
// unspecified. parentRatio is the parent's own final ratio (1 for the
// root). The returned slice is in the same order as explicit.
func ScaledRatios(explicit []*float64, parentRatio float64) []float64 {
	n := len(explicit)
	shares := make([]float64, n)
	if n == 0 {
		return shares
	}

	var specifiedSum float64
	var unspecifiedCount int
	for _, r := range explicit {
		if r != nil {
			specifiedSum += *r
		} else {
			unspecifiedCount++
		}
	}

	var unspecifiedShare float64
	if unspecifiedCount > 0 {
		remainder := 1 - specifiedSum
		if remainder > 0 {
			unspecifiedShare = remainder / float64(unspecifiedCount)
		} else {
			// Specified ratios already consume (or exceed) the whole; give
			// unspecified siblings the mean of the specified ratios rather
			// than a negative or zero share.
			if n-unspecifiedCount > 0 {
				unspecifiedShare = specifiedSum / float64(n-unspecifiedCount)
			}
		}
	}

	var total float64
	for i, r := range explicit {
		if r != nil {
			shares[i] = *r
		} else {
			shares[i] = unspecifiedShare
		}
		total += shares[i]
	}

	if total <= 0 {
		// Degenerate case: nothing specified anything usable. Split evenly.
		for i := range shares {
			shares[i] = 1.0 / float64(n)
		}
		total = 1
	}

	for i := range shares {
		shares[i] = (shares[i] / total) * parentRatio
	}

	return shares
}

// Ticket is a unit of lottery voting weight: a pair of an assigned item and
// the allocator identifier that claimed it. Empty tickets (AssignedItem ==
// nil) are what the Lottery scheduler generates before dispatching them to
// allocators.
type Ticket struct {
	AssignedItem *Item
	Allocator    string
}
