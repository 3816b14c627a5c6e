// Package abort provides the cancellation token shared by the CLI, batch
// runner and pipeline for one top-level run.
package abort

import (
	"context"
	"sync"
)

// Token requests cooperative cancellation of the current run. The zero value
// is ready to use; Start must be called before Context returns anything other
// than a cancelled context.
type Token struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	ctx       context.Context
	requested bool
}

// Start resets the token and returns a fresh cancellable context derived from
// parent for a new top-level run. Any previous run's context is cancelled.
func (t *Token) Start(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.ctx, t.cancel = context.WithCancel(parent)
	t.requested = false
	return t.ctx
}

// Abort requests cancellation. It is safe to call from a signal handler
// goroutine and reports whether this call was the first request for the run.
func (t *Token) Abort() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	first := !t.requested
	t.requested = true
	if t.cancel != nil {
		t.cancel()
	}
	return first
}

// Requested reports whether Abort was called since the last Start.
func (t *Token) Requested() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requested
}

// Context returns the current run's context.
func (t *Token) Context() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctx == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return t.ctx
}
