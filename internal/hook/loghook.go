package hook

import "log"

// LogHook is a Hook that writes every invocation to a *log.Logger.
type LogHook struct {
	*log.Logger
}

// NewLogHook creates a LogHook that writes through the given logger.
func NewLogHook(logger *log.Logger) *LogHook {
	return &LogHook{Logger: logger}
}

// Func writes the hook context to the logger.
func (h *LogHook) Func(ctx HookCtx) {
	h.Logger.Printf("%s: %+v\n", ctx.Pos.Name, ctx.Item)
}
