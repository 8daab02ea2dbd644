// Package executor resolves tool calls to results, either in-process (Local)
// or against an HTTP tool backend (Remote). Guard restricts any executor to
// the contract presented to the provider.
package executor

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/kidslingo/kidslingo/internal/schema"
)

// Handler is an in-process tool implementation. The returned value must be
// JSON-serialisable; an error becomes an {"error": ...} result.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Local dispatches tool calls by name to an in-process handler table.
type Local struct {
	handlers map[string]Handler
	timeout  time.Duration
}

// NewLocal copies handlers into an immutable table. timeout bounds each
// handler call; zero means no per-call limit.
func NewLocal(handlers map[string]Handler, timeout time.Duration) *Local {
	table := make(map[string]Handler, len(handlers))
	for name, h := range handlers {
		table[name] = h
	}
	return &Local{handlers: table, timeout: timeout}
}

// Names returns the registered tool names, sorted.
func (l *Local) Names() []string {
	names := make([]string, 0, len(l.handlers))
	for name := range l.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute implements schema.Executor. It never returns a non-nil error.
func (l *Local) Execute(ctx context.Context, name string, args map[string]any) (result schema.ToolResult, err error) {
	h, ok := l.handlers[name]
	if !ok {
		return schema.Failure("unknown tool %s", name), nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool handler panicked", "tool", name, "panic", r)
			result, err = schema.Failure("%s: %v", name, r), nil
		}
	}()

	payload, herr := h(ctx, args)
	if herr != nil {
		return schema.Failure("%s", herr.Error()), nil
	}
	return schema.OK(payload), nil
}

// Merge combines handler tables; later tables win on name clashes.
func Merge(tables ...map[string]Handler) map[string]Handler {
	out := map[string]Handler{}
	for _, t := range tables {
		for name, h := range t {
			out[name] = h
		}
	}
	return out
}

var _ schema.Executor = (*Local)(nil)
