package executor

import (
	"context"

	"github.com/kidslingo/kidslingo/internal/schema"
)

// Guard refuses to dispatch tools that are absent from the contract shown to
// the provider, so a hallucinated name never reaches a backend.
type Guard struct {
	contract schema.Contract
	inner    schema.Executor
}

func NewGuard(contract schema.Contract, inner schema.Executor) *Guard {
	return &Guard{contract: contract, inner: inner}
}

// Execute implements schema.Executor.
func (g *Guard) Execute(ctx context.Context, name string, args map[string]any) (schema.ToolResult, error) {
	if _, ok := g.contract.Get(name); !ok {
		return schema.Failure("unknown tool %s", name), nil
	}
	return g.inner.Execute(ctx, name, args)
}

var _ schema.Executor = (*Guard)(nil)
