// Package contentmodel defines the content descriptor set (CDS) tree, its
// constraint system, and the lottery ticket type every downstream package —
// subscription persistence, the filter pipeline, the lottery scheduler, and
// the Scheduling Manager — operates on.
package contentmodel

import "strconv"

// SetType distinguishes an inline CDS subtree from one that is a remote
// placeholder awaiting resolution by a Subscription Handler.
type SetType string

const (
	SetTypeInline SetType = "inline"
	SetTypeRemote SetType = "remote"
)

// Node is implemented by both Set (an interior node) and Item (a leaf). It
// lets filters and the reassembler walk a CDS without a type switch at
// every step.
type Node interface {
	// Constraints returns the node's own (possibly empty) constraint set.
	Constraints() []Constraint
}

// Set is an interior CDS node: a set of constraints plus either an inline
// subtree (Children populated) or a remote placeholder (RequiresFile
// populated, Children empty until reassembly splices in the fetched
// subtree).
type Set struct {
	Type          SetType
	ConstraintSet []Constraint
	RequiresFile  *RequiresFile
	Children      []Node
}

// Constraints implements Node.
func (s *Set) Constraints() []Constraint {
	return s.ConstraintSet
}

// Item is a CDS leaf: a single playable content artifact.
type Item struct {
	ContentType   string
	Size          int64
	ConstraintSet []Constraint
	RequiresFiles []RequiresFile
	// RawXML retains the item's original serialized form for the equality
	// and normalization checks the filter pipeline's TouchInputFilter needs
	// (compare against a context store record's stored content-item XML).
	RawXML string
}

// Constraints implements Node.
func (i *Item) Constraints() []Constraint {
	return i.ConstraintSet
}

// RequiresFile names one or more source URIs for a piece of content, plus
// optional per-algorithm hashes used for strict cache-hit verification.
type RequiresFile struct {
	Sources []Source
	Hashes  map[string]string // algorithm ("md5", "sha1") -> hex digest
}

// Source is a single candidate URI for a RequiresFile, with an optional
// refresh interval governing how often a cached copy should be re-pulled.
type Source struct {
	URI     string
	Refresh *int64 // seconds; nil if unspecified
}

// PrimaryURI returns the first source URI, which is what cache naming and
// handler dispatch key off of. Panics if called on a RequiresFile with no
// sources — callers are expected to validate during XML parsing.
func (r RequiresFile) PrimaryURI() string {
	return r.Sources[0].URI
}

// xmlRequiresFile / xmlSource mirror the wire schema of §6 for decoding.
type xmlRequiresFile struct {
	Sources xmlSources `xml:"sources"`
	Hashes  *xmlHashes `xml:"hashes"`
}

type xmlSources struct {
	URIs []xmlURI `xml:"uri"`
}

type xmlURI struct {
	Value   string `xml:",chardata"`
	Refresh string `xml:"refresh,attr"`
}

type xmlHashes struct {
	Hash []xmlHash `xml:"hash"`
}

type xmlHash struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

func decodeRequiresFile(x xmlRequiresFile) RequiresFile {
	rf := RequiresFile{Hashes: make(map[string]string)}
	for _, u := range x.Sources.URIs {
		src := Source{URI: u.Value}
		if u.Refresh != "" {
			if d, err := parseRefreshSeconds(u.Refresh); err == nil {
				src.Refresh = &d
			}
		}
		rf.Sources = append(rf.Sources, src)
	}
	if x.Hashes != nil {
		for _, h := range x.Hashes.Hash {
			rf.Hashes[h.Type] = h.Value
		}
	}
	return rf
}

func parseRefreshSeconds(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
