// Package contextstore persists sensor and subscription context records
// (§4.6): every sensor-update and touch-input event Yarely components
// observe gets appended to a SQLite-backed history, keyed by context
// type, that downstream allocators (RecencyBasedAllocator) and filters
// read back from.
package contextstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ContextType names one of the supported rows a Store will accept.
type ContextType string

const (
	TypeSensorUpdate   ContextType = "sensor_update"
	TypeTouchInput     ContextType = "touch_input"
	TypePageview       ContextType = "pageview"
	TypeContentTrigger ContextType = "content_trigger"
)

func (t ContextType) supported() bool {
	switch t {
	case TypeSensorUpdate, TypeTouchInput, TypePageview, TypeContentTrigger:
		return true
	default:
		return false
	}
}

// Record is one row read back from the context store.
type Record struct {
	ContextID     int64
	Created       time.Time
	ContextType   ContextType
	ContentItemXML string
}

// Store persists context_store rows; every operation opens and closes
// its own SQLite connection, the same per-call-connection model
// pkg/subscription uses, so the file tolerates concurrent access.
type Store struct {
	path string
}

// NewStore opens path (creating it if absent) and ensures the schema
// exists.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.withDB(func(db *sql.DB) error {
		_, err := db.Exec(`CREATE TABLE IF NOT EXISTS context_store (
			context_id INTEGER PRIMARY KEY,
			created DATETIME DEFAULT CURRENT_TIMESTAMP,
			context_type TEXT,
			content_item_xml TEXT
		)`)
		return err
	}); err != nil {
		return nil, fmt.Errorf("contextstore: create schema: %w", err)
	}
	return s, nil
}

func (s *Store) withDB(fn func(*sql.DB) error) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("contextstore: open %s: %w", s.path, err)
	}
	defer db.Close()
	return fn(db)
}

// ContentItemsByRecency returns up to limit distinct content_item_xml
// values recorded under contextType, ordered most-recently-played first
// (by each value's latest row). It collapses the source system's
// "DISTINCT ... ORDER BY rowid" query -- ambiguous once more than one row
// shares a content item -- into an explicit GROUP BY/MAX(context_id), so
// RecencyBasedAllocator gets a well-defined recency order.
func (s *Store) ContentItemsByRecency(contextType ContextType, limit int) ([]string, error) {
	if !contextType.supported() {
		return nil, ErrUnsupportedContextType
	}

	var xmls []string
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT content_item_xml FROM context_store
			 WHERE context_type = ? AND content_item_xml IS NOT NULL AND content_item_xml != ''
			 GROUP BY content_item_xml
			 ORDER BY MAX(context_id) DESC
			 LIMIT ?`,
			string(contextType), limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var xml string
			if err := rows.Scan(&xml); err != nil {
				return err
			}
			xmls = append(xmls, xml)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("contextstore: content items by recency: %w", err)
	}
	return xmls, nil
}

// ErrUnsupportedContextType is returned by AddContext and GetLatestByType
// for any ContextType outside the four supported values.
var ErrUnsupportedContextType = fmt.Errorf("contextstore: unsupported context type")

// AddContext appends a record. contentItemXML may be empty — some
// context types (like a bare sensor ping) carry no content item, and the
// event itself is still worth recording.
func (s *Store) AddContext(contextType ContextType, contentItemXML string) (int64, error) {
	if !contextType.supported() {
		return 0, ErrUnsupportedContextType
	}

	var id int64
	err := s.withDB(func(db *sql.DB) error {
		res, err := db.Exec(
			`INSERT INTO context_store(context_type, content_item_xml) VALUES(?, ?)`,
			string(contextType), contentItemXML,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("contextstore: add context: %w", err)
	}
	return id, nil
}

// GetLatestByType returns the n most recent records of contextType,
// newest first.
func (s *Store) GetLatestByType(contextType ContextType, n int) ([]Record, error) {
	if !contextType.supported() {
		return nil, ErrUnsupportedContextType
	}

	var records []Record
	err := s.withDB(func(db *sql.DB) error {
		rows, err := db.Query(
			`SELECT context_id, created, context_type, content_item_xml
			 FROM context_store WHERE context_type = ? ORDER BY created DESC, context_id DESC LIMIT ?`,
			string(contextType), n,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec Record
			var created interface{}
			var ct string
			var xmlVal sql.NullString
			if err := rows.Scan(&rec.ContextID, &created, &ct, &xmlVal); err != nil {
				return err
			}
			rec.ContextType = ContextType(ct)
			rec.ContentItemXML = xmlVal.String
			switch v := created.(type) {
			case time.Time:
				rec.Created = v
			case string:
				if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
					rec.Created = parsed
				}
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("contextstore: get latest by type: %w", err)
	}
	return records, nil
}
