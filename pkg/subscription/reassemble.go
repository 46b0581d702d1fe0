package subscription

import "database/sql"

// Reassemble loads the content-set persisted for xmlID and recursively
// splices in every remote child it references, depth-first. It returns
// (nil, nil) — not an error — when the tree can't be fully resolved: a
// placeholder whose URI has no persisted xml, per §4.4's "reassembly
// returns None on integrity failure", which the caller is expected to
// treat as "skip this forward, keep serving whatever CDS is already in
// play" rather than a hard failure.
func (s *Store) Reassemble(xmlID string) (*Element, error) {
	var result *Element
	err := s.withDB(func(db *sql.DB) error {
		raw, ok, err := xmlByID(db, xmlID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		el, err := ParseElement(raw)
		if err != nil {
			return err
		}

		ok, err = reassembleInto(db, el)
		if err != nil {
			return err
		}
		if ok {
			result = el
		}
		return nil
	})
	return result, err
}

// reassembleInto mutates el in place, replacing every remote placeholder
// content-set it directly or transitively contains with its fetched,
// recursively reassembled, constraint-merged subtree. It returns false
// the moment any placeholder can't be resolved, aborting the whole
// reassembly rather than returning a partially-spliced tree.
func reassembleInto(db *sql.DB, el *Element) (bool, error) {
	for i, child := range el.Children {
		if child.XMLName.Local != "content-set" {
			continue
		}

		if !isRemoteType(child) {
			ok, err := reassembleInto(db, child)
			if err != nil || !ok {
				return false, err
			}
			continue
		}

		childURIs := sourceURIs(child)
		if len(childURIs) == 0 {
			return false, nil
		}

		childID, ok, err := lookupXMLIDByURIs(db, childURIs)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		childRaw, ok, err := xmlByID(db, childID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}

		fetched, err := ParseElement(childRaw)
		if err != nil {
			return false, err
		}

		ok, err = reassembleInto(db, fetched)
		if err != nil || !ok {
			return false, err
		}

		el.Replace(i, mergeConstraints(child, fetched))
	}
	return true, nil
}

// mergeConstraints extends the fetched subtree's own <constraints> with
// the placeholder's constraint children (or attaches the placeholder's
// <constraints> wholesale if the fetched subtree has none), so
// constraints declared at the reference site still apply once the real
// content is spliced in.
func mergeConstraints(placeholder, fetched *Element) *Element {
	placeholderConstraints := placeholder.Find("constraints")
	if placeholderConstraints == nil {
		return fetched
	}

	fetchedConstraints := fetched.Find("constraints")
	if fetchedConstraints == nil {
		fetched.Children = append(fetched.Children, placeholderConstraints)
		return fetched
	}

	fetchedConstraints.Children = append(fetchedConstraints.Children, placeholderConstraints.Children...)
	return fetched
}
