package tracing_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sarchlab/ocular/internal/hook"
	"github.com/sarchlab/ocular/tracing"
)

func TestWriteAndReadEvents(t *testing.T) {
	dbPath := "test_events.sqlite3"
	os.Remove(dbPath)
	defer os.Remove(dbPath)

	w, err := tracing.NewSQLiteEventWriter(dbPath)
	assert.NoError(t, err)

	w.Func(hook.HookCtx{Pos: hook.PosPassStart, Item: 0})
	w.Func(hook.HookCtx{Pos: hook.PosNetDispatch, Item: 42})
	w.Func(hook.HookCtx{Pos: hook.PosPassEnd, Item: 0})

	assert.NoError(t, w.Close())

	r, err := tracing.NewSQLiteEventReader(dbPath)
	assert.NoError(t, err)
	defer r.Close()

	all, err := r.ListEvents("")
	assert.NoError(t, err)
	assert.Len(t, all, 3)

	dispatches, err := r.ListEvents(hook.PosNetDispatch.Name)
	assert.NoError(t, err)
	assert.Len(t, dispatches, 1)
	assert.Equal(t, "42", dispatches[0].Item)
}

func TestFlushWithEmptyBufferIsNoop(t *testing.T) {
	dbPath := "test_events_empty.sqlite3"
	os.Remove(dbPath)
	defer os.Remove(dbPath)

	w, err := tracing.NewSQLiteEventWriter(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, w.Flush())
	assert.NoError(t, w.Close())
}
