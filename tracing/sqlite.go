// Package tracing persists the pass-by-pass history of a router.Route call to
// SQLite, adapted from the teacher's tracing.SQLiteTraceWriter: batched,
// buffered writes flushed inside a single transaction, with a prepared
// statement reused across every insert in a batch.
package tracing

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ocular/internal/hook"
	"github.com/sarchlab/ocular/internal/idgen"
)

// defaultBatchSize mirrors the teacher's SQLiteTraceWriter buffering —
// events accumulate in memory and flush together, instead of one
// transaction per row.
const defaultBatchSize = 100

// event is one row of the events table, shared by every hook.HookPos this
// writer is registered against.
type event struct {
	ID   string
	Pos  string
	Item string
}

// SQLiteEventWriter is a hook.Hook: registering it in router.Config.Hooks
// makes every PassStart/PassEnd/NetDispatch/NetBound/NetRipup/Overuse event
// durable, so a route can be replayed or audited after the process exits.
type SQLiteEventWriter struct {
	db        *sql.DB
	insertStmt *sql.Stmt
	ids       idgen.IDGenerator

	buffer    []event
	batchSize int
}

// NewSQLiteEventWriter opens the database at dbPath, creating the file and
// its events table if absent (rows already in an existing file are kept,
// and new events are appended to them), and registers a
// flush-on-exit handler via atexit, so an event writer attached to a route
// that panics or os.Exits still persists its buffered rows.
func NewSQLiteEventWriter(dbPath string) (*SQLiteEventWriter, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	w := &SQLiteEventWriter{
		db:        db,
		ids:       idgen.NewParallel(),
		batchSize: defaultBatchSize,
	}

	if err := w.createTable(); err != nil {
		return nil, err
	}
	if err := w.prepareStatement(); err != nil {
		return nil, err
	}

	atexit.Register(func() { _ = w.Flush() })

	return w, nil
}

func (w *SQLiteEventWriter) createTable() error {
	_, err := w.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id   TEXT PRIMARY KEY,
			pos  TEXT,
			item TEXT
		)
	`)
	return err
}

func (w *SQLiteEventWriter) prepareStatement() error {
	stmt, err := w.db.Prepare("INSERT INTO events (id, pos, item) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	w.insertStmt = stmt
	return nil
}

// Func implements hook.Hook. It buffers the event and flushes once the
// batch fills, the same buffer-then-transaction shape as the teacher's
// SQLiteTraceWriter.Write.
func (w *SQLiteEventWriter) Func(ctx hook.HookCtx) {
	name := "unknown"
	if ctx.Pos != nil {
		name = ctx.Pos.Name
	}

	w.buffer = append(w.buffer, event{
		ID:   w.ids.Generate(),
		Pos:  name,
		Item: fmt.Sprintf("%v", ctx.Item),
	})

	if len(w.buffer) >= w.batchSize {
		mustFlush(w)
	}
}

// Flush writes every buffered event inside a single transaction and clears
// the buffer. Safe to call with an empty buffer.
func (w *SQLiteEventWriter) Flush() error {
	if len(w.buffer) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt := tx.Stmt(w.insertStmt)
	for _, e := range w.buffer {
		if _, err := stmt.Exec(e.ID, e.Pos, e.Item); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	w.buffer = w.buffer[:0]
	return nil
}

// Close flushes any remaining buffered events and closes the database.
func (w *SQLiteEventWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.db.Close()
}

func mustFlush(w *SQLiteEventWriter) {
	if err := w.Flush(); err != nil {
		panic(err)
	}
}
