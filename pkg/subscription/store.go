package subscription

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists reassembled content-set trees across three tables —
// xml, uri, xml_link — matching the wire spec's persistent store schema.
// Every operation opens and closes its own connection, the same
// per-call-connection model the context store uses, so the same SQLite
// file tolerates concurrent access from multiple goroutines or
// processes.
type Store struct {
	path string
}

// NewStore opens path (creating it if absent) and ensures the schema
// exists.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.withDB(func(db *sql.DB) error {
		return ensureSchema(db)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS xml (xml_id TEXT PRIMARY KEY, xml TEXT)`,
		`CREATE TABLE IF NOT EXISTS uri (xml_id TEXT NOT NULL, uri TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS xml_link (parent_id TEXT NOT NULL, child_id TEXT PRIMARY KEY)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("subscription: create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) withDB(fn func(*sql.DB) error) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("subscription: open %s: %w", s.path, err)
	}
	defer db.Close()
	return fn(db)
}

// SaveRoot persists the content-set fetched for uri: the document is
// either a bare <content-set> or a <subscription-update uri=…> wrapping
// one, per §6's Subscription XML schema.
func (s *Store) SaveRoot(uri, rawXML string) (string, error) {
	doc, err := ParseElement(rawXML)
	if err != nil {
		return "", err
	}

	cs := doc
	if doc.XMLName.Local == "subscription-update" {
		inner := doc.Find("content-set")
		if inner == nil {
			return "", fmt.Errorf("subscription: subscription-update for %s has no content-set", uri)
		}
		cs = inner
	}

	var xmlID string
	err = s.withDB(func(db *sql.DB) error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		xmlID, err = saveContentSet(tx, uri, cs)
		if err != nil {
			return err
		}
		return tx.Commit()
	})
	return xmlID, err
}

func saveContentSet(tx *sql.Tx, sourceURI string, cs *Element) (string, error) {
	uris := sourceURIs(cs)
	if !containsURI(uris, sourceURI) {
		uris = append(uris, sourceURI)
	}

	existing, ok, err := lookupXMLIDByURIs(tx, uris)
	if err != nil {
		return "", err
	}

	encoded, err := cs.Encode()
	if err != nil {
		return "", err
	}

	xmlID := existing
	if !ok {
		xmlID = uuid.NewString()
		if _, err := tx.Exec(`INSERT INTO xml(xml_id, xml) VALUES(?, ?)`, xmlID, encoded); err != nil {
			return "", fmt.Errorf("subscription: insert xml: %w", err)
		}
	} else if strings.TrimSpace(encoded) != "" {
		if _, err := tx.Exec(`UPDATE xml SET xml = ? WHERE xml_id = ?`, encoded, xmlID); err != nil {
			return "", fmt.Errorf("subscription: update xml: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM uri WHERE xml_id = ?`, xmlID); err != nil {
		return "", fmt.Errorf("subscription: delete uris: %w", err)
	}
	for _, u := range uris {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO uri(xml_id, uri) VALUES(?, ?)`, xmlID, u); err != nil {
			return "", fmt.Errorf("subscription: replace uri: %w", err)
		}
	}

	for _, child := range remoteChildSets(cs) {
		childURIs := sourceURIs(child)
		if len(childURIs) == 0 {
			continue
		}
		childID, ok, err := lookupXMLIDByURIs(tx, childURIs)
		if err != nil {
			return "", err
		}
		if !ok {
			childID = uuid.NewString()
			for _, cu := range childURIs {
				if _, err := tx.Exec(`INSERT OR REPLACE INTO uri(xml_id, uri) VALUES(?, ?)`, childID, cu); err != nil {
					return "", fmt.Errorf("subscription: pre-register child uri: %w", err)
				}
			}
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO xml_link(parent_id, child_id) VALUES(?, ?)`, xmlID, childID); err != nil {
			return "", fmt.Errorf("subscription: replace link: %w", err)
		}
	}

	return xmlID, nil
}

func lookupXMLIDByURIs(q queryer, uris []string) (string, bool, error) {
	for _, u := range uris {
		var xmlID string
		err := q.QueryRow(`SELECT xml_id FROM uri WHERE uri = ?`, u).Scan(&xmlID)
		if err == nil {
			return xmlID, true, nil
		}
		if err != sql.ErrNoRows {
			return "", false, fmt.Errorf("subscription: lookup uri %s: %w", u, err)
		}
	}
	return "", false, nil
}

// LookupXMLIDByURI reports the xml_id persisted for uri, if any.
func (s *Store) LookupXMLIDByURI(uri string) (string, bool, error) {
	var xmlID string
	var found bool
	err := s.withDB(func(db *sql.DB) error {
		row := db.QueryRow(`SELECT xml_id FROM uri WHERE uri = ?`, uri)
		switch err := row.Scan(&xmlID); err {
		case nil:
			found = true
			return nil
		case sql.ErrNoRows:
			return nil
		default:
			return err
		}
	})
	return xmlID, found, err
}

func xmlByID(q queryer, xmlID string) (string, bool, error) {
	var raw string
	row := q.QueryRow(`SELECT xml FROM xml WHERE xml_id = ?`, xmlID)
	switch err := row.Scan(&raw); err {
	case nil:
		return raw, true, nil
	case sql.ErrNoRows:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("subscription: load xml %s: %w", xmlID, err)
	}
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func sourceURIs(cs *Element) []string {
	var out []string
	for _, rf := range cs.FindAll("requires-file") {
		sources := rf.Find("sources")
		if sources == nil {
			continue
		}
		for _, u := range sources.FindAll("uri") {
			if text := u.Text(); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

func containsURI(uris []string, target string) bool {
	for _, u := range uris {
		if u == target {
			return true
		}
	}
	return false
}

func isRemoteType(cs *Element) bool {
	val, ok := cs.Attr("type")
	if !ok {
		return true
	}
	return val == "remote"
}

// remoteChildSets walks cs's own subtree, descending through inline
// content-sets, and collects every content-set it finds with type
// remote — the placeholders this row's xml_link rows must point to.
func remoteChildSets(cs *Element) []*Element {
	var out []*Element
	for _, c := range cs.Children {
		if c.XMLName.Local != "content-set" {
			continue
		}
		if isRemoteType(c) {
			out = append(out, c)
		} else {
			out = append(out, remoteChildSets(c)...)
		}
	}
	return out
}
