/*
Package filter implements the §4.7 filter pipeline: a fixed sequence of
depth-first prunes over a content descriptor set, each one narrowing what
survives to what the display can actually show right now.

Every filter receives a content descriptor set and returns either a
pruned copy or nil when nothing in it remains eligible; Pipeline feeds
one filter's output into the next and stops the moment a step empties
the set. The fixed order mirrors pipeline.py's DEFAULT_FILTERS: technical
playability gates first (can we even render this content type, is it
cached), then personalization (Tacita), then calendar constraints, and
priority last so it only ever narrows whatever has already cleared every
other gate.

PruneDepthFirst is the shared depth-first-search shape every filter is
built on: clone the tree, walk it, drop leaf items a
predicate rejects, leave interior Sets in place even once emptied. Filters
that need to compare against ancestor constraints (ConstraintsAreMetFilter,
PriorityFilter) receive the accumulated ancestor constraint list alongside
each leaf, since contentmodel nodes carry no parent pointer of their own.
*/
package filter
