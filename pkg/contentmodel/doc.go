/*
Package contentmodel defines the content descriptor set (CDS) tree and its
constraint system.

A CDS is a tree of *Set interior nodes and *Item leaves. An interior node
is either inline (its Children are embedded directly) or remote (it carries
a RequiresFile placeholder, resolved asynchronously by pkg/subscription and
spliced into place during reassembly). Every node, interior or leaf, can
carry a ConstraintSet; pkg/filter's ConstraintsAreMetFilter walks the tree
testing constraints against the current moment, inheriting a parent's
constraints into its children.

Constraint is a tagged-union interface rather than a single struct with a
discriminator field, so each variant's IsMet method can express the
(variant, condition-variant) dispatch table directly: DateConstraint and
TimeConstraint only make sense against a DateTimeCondition, PriorityConstraint
only against a PriorityCondition, and PreferredDurationConstraint /
PlaybackConstraint never gate at all (they report "not implemented" and
inform duration selection / lottery allocation respectively).

ScaledRatios implements the recursive ratio invariant: siblings without an
explicit PlaybackConstraint ratio split the unclaimed remainder evenly, then
every sibling's share renormalizes so they sum to 1, multiplied by the
parent's own final ratio.
*/
package contentmodel
