package tx

import (
	"context"
	"sync"
)

// Hooks collects callbacks to run once the outermost transaction commits.
type Hooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

type hooksKey struct{}

// WithHooks attaches a fresh hook list to ctx. Managers call it when they
// begin an outermost transaction.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit schedules fn to run after the enclosing transaction commits.
// Outside a transaction fn runs immediately. Callbacks are dropped on rollback.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	h, ok := ctx.Value(hooksKey{}).(*Hooks)
	if !ok || h == nil {
		fn(ctx)
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes the collected callbacks in registration order.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}
