// Package lottery implements the lottery ticket scheduler (§4.8): a pool
// of allocators each hand out a share of a fixed ticket budget across the
// content items surviving the filter pipeline, and a winner is drawn
// uniformly at random from the pooled tickets. An item's odds of winning
// are proportional to how many tickets it holds, so an allocator's
// allocation policy is what actually shapes playout — RatioAllocator
// (the configured default) favours PlaybackConstraint ratios, while the
// others bias by duration, recency, or not at all.
package lottery
