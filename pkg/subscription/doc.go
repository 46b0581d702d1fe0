// Package subscription implements the Subscription Manager (§4.4): it
// persists every content-set it receives, spawns Pull-handlers for newly
// referenced remote content subject to a NestingPolicy allow-list,
// reassembles the full tree rooted at a given URI by recursively
// resolving and splicing in its remote children, and forwards the
// reassembled tree wrapped in a <subscription-update uri=root> envelope.
//
// Element (xmltree.go) is a generic XML DOM used instead of fixed
// structs, because reassembly grafts subtrees parsed from independently
// persisted documents into placeholder positions inside other documents
// — a shape no single Go struct can describe ahead of time.
//
// Store (store.go) persists across three tables (xml, uri, xml_link)
// matching the wire schema; every operation opens and closes its own
// SQLite connection so the same file tolerates concurrent multi-process
// access. Reassemble (reassemble.go) walks xml_link depth-first and
// returns (nil, nil) on any unresolved placeholder, per the "integrity
// failure" behavior of the original subscription manager: callers skip
// the forward rather than propagate a hard error.
package subscription
