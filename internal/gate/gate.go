// Package gate implements the global pause/resume barrier workers consult
// between commands: Stop suspends all future work, Release resumes it, and
// Wait blocks a worker while stopped, cancellation-safely.
package gate

import (
	"context"
	"sync"
)

// Gate is a broadcast pause/resume barrier. The zero value is not usable;
// construct one with New.
type Gate struct {
	mu      sync.Mutex
	cond    *sync.Cond
	stopped bool
}

// New returns a Gate that starts open (not stopped).
func New() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Wait blocks while the gate is stopped. It returns ctx.Err() if ctx is
// cancelled while waiting; the gate's internal mutex is never held across
// the return in that case. Wait never holds any lock other than its own
// internal mutex, so it is always safe for a worker to call while holding
// no Tree locks.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.stopped {
		return nil
	}

	// sync.Cond has no context-aware wait, so a watcher goroutine
	// broadcasts the condition when ctx is cancelled; the woken waiter
	// re-checks ctx.Err() to distinguish a real release from a cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			g.mu.Lock()
			g.cond.Broadcast()
			g.mu.Unlock()
		case <-done:
		}
	}()

	for g.stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.cond.Wait()
	}
	return ctx.Err()
}

// Stop marks the gate stopped. Workers already inside a Tree operation
// finish normally; only their *next* Wait call blocks, since the gate is
// consulted outside any Tree lock.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
}

// Release marks the gate open and wakes every waiter.
func (g *Gate) Release() {
	g.mu.Lock()
	g.stopped = false
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Stopped reports whether the gate is currently stopped.
func (g *Gate) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}
