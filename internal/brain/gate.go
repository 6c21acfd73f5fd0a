package brain

import (
	"context"
	"sync"
)

// Gate serializes interpreter traffic per conversation: starting a new
// request cancels the one still in flight, so a fast follow-up message
// always wins over a stale slow one.
type Gate struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Start derives a cancellable context for a new request and cancels the
// previous request if it is still running. The returned release func must be
// called when the request finishes; it never touches requests started later.
func (g *Gate) Start(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	mine := g.gen
	g.cancel = cancel
	g.mu.Unlock()

	return ctx, func() {
		cancel()
		g.mu.Lock()
		if g.gen == mine {
			g.cancel = nil
		}
		g.mu.Unlock()
	}
}
