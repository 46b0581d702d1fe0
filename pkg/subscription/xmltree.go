package subscription

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Element is a generic, mutable XML tree node. The CDS documents this
// package parses and splices (content-set/content-item/constraints) have
// no fixed Go struct shape once reassembly starts grafting subtrees from
// other documents into placeholder positions, so this package operates
// on a DOM-like tree rather than the tagged-union structs in
// pkg/contentmodel.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []*Element `xml:",any"`
	CharData string     `xml:",chardata"`
}

// ParseElement decodes one XML document's root element into a tree.
func ParseElement(raw string) (*Element, error) {
	var el Element
	if err := xml.Unmarshal([]byte(raw), &el); err != nil {
		return nil, fmt.Errorf("subscription: parse xml: %w", err)
	}
	return &el, nil
}

// Encode renders the tree back to XML text.
func (e *Element) Encode() (string, error) {
	var buf bytes.Buffer
	if err := xml.NewEncoder(&buf).Encode(e); err != nil {
		return "", fmt.Errorf("subscription: encode xml: %w", err)
	}
	return buf.String(), nil
}

// Attr returns the value of attribute name, if present.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets (or replaces) attribute name.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if a.Name.Local == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// Find returns the first direct child named local, if any.
func (e *Element) Find(local string) *Element {
	for _, c := range e.Children {
		if c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child named local.
func (e *Element) FindAll(local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.XMLName.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// Text returns trimmed character data directly under e.
func (e *Element) Text() string {
	return strings.TrimSpace(e.CharData)
}

// Replace swaps the child at index i for replacement.
func (e *Element) Replace(i int, replacement *Element) {
	e.Children[i] = replacement
}
