package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sarchlab/ocular/internal/hook"
)

func TestFuncUpdatesCounters(t *testing.T) {
	m := NewMonitor()

	m.Func(hook.HookCtx{Pos: hook.PosPassStart, Item: 2})
	m.Func(hook.HookCtx{Pos: hook.PosNetDispatch, Item: nil})
	m.Func(hook.HookCtx{Pos: hook.PosNetDispatch, Item: nil})
	m.Func(hook.HookCtx{Pos: hook.PosNetBound, Item: nil})
	m.Func(hook.HookCtx{Pos: hook.PosOveruse, Item: 3})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/progress", nil)
	m.listProgress(rr, req)

	var got progressRsp
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Pass)
	assert.Equal(t, 2, got.NetsDispatched)
	assert.Equal(t, 1, got.NetsBound)
	assert.Equal(t, 3, got.OverusedWires)
}

func TestSlotEndpointWithoutPoolReturns404(t *testing.T) {
	m := NewMonitor()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/slot/0", nil)
	m.listSlot(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
