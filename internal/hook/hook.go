// Package hook provides the instrumentation primitives the router invokes
// and the monitor, tracing, and CLI packages subscribe with.
package hook

// HookPos names a site at which a Hookable may invoke its registered Hooks.
type HookPos struct {
	Name string
}

// HookCtx carries the information available at a hook site.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
	Detail interface{}
}

// Hookable is anything that accepts Hooks.
type Hookable interface {
	AcceptHook(h Hook)
}

// Hook is a short piece of program invoked by a Hookable at a HookPos.
type Hook interface {
	Func(ctx HookCtx)
}

// Base provides the bookkeeping used by most Hookable implementations.
type Base struct {
	hooks []Hook
}

// NewBase creates an empty Base.
func NewBase() *Base {
	return &Base{hooks: make([]Hook, 0)}
}

// AcceptHook registers a hook.
func (b *Base) AcceptHook(h Hook) {
	b.hooks = append(b.hooks, h)
}

// NumHooks returns the number of hooks currently registered.
func (b *Base) NumHooks() int {
	return len(b.hooks)
}

// Invoke triggers every registered hook with the given context.
func (b *Base) Invoke(ctx HookCtx) {
	for _, h := range b.hooks {
		h.Func(ctx)
	}
}

var (
	// PosPassStart marks the beginning of a negotiated-congestion pass.
	PosPassStart = &HookPos{Name: "PassStart"}
	// PosPassEnd marks the end of a negotiated-congestion pass.
	PosPassEnd = &HookPos{Name: "PassEnd"}
	// PosNetDispatch marks a net being admitted and dispatched to the kernel.
	PosNetDispatch = &HookPos{Name: "NetDispatch"}
	// PosNetBound marks a net having its PIPs bound after a successful trace-back.
	PosNetBound = &HookPos{Name: "NetBound"}
	// PosNetRipup marks a net losing its routing because of overuse.
	PosNetRipup = &HookPos{Name: "NetRipup"}
	// PosOveruse marks a wire found overused during congestion scan.
	PosOveruse = &HookPos{Name: "Overuse"}
)
