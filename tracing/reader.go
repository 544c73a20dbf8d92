package tracing

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Event is one persisted route/bind/rip-up occurrence, as returned by
// SQLiteEventReader.
type Event struct {
	ID   string
	Pos  string
	Item string
}

// SQLiteEventReader reads back a database written by SQLiteEventWriter —
// the teacher's SQLiteTraceReader counterpart.
type SQLiteEventReader struct {
	db *sql.DB
}

// NewSQLiteEventReader opens dbPath for reading.
func NewSQLiteEventReader(dbPath string) (*SQLiteEventReader, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	return &SQLiteEventReader{db: db}, nil
}

// ListEvents returns every event recorded at pos, or every event if pos is
// empty, ordered by insertion.
func (r *SQLiteEventReader) ListEvents(pos string) ([]Event, error) {
	query := "SELECT id, pos, item FROM events"
	args := []interface{}{}
	if pos != "" {
		query += " WHERE pos = ?"
		args = append(args, pos)
	}
	query += " ORDER BY rowid"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Pos, &e.Item); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database handle.
func (r *SQLiteEventReader) Close() error {
	return r.db.Close()
}
