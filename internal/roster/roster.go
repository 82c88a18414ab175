// Package roster tracks every live client worker in a doubly linked list
// guarded by a single mutex, plus the process-wide active-worker counter
// the supervisor waits on during shutdown.
package roster

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by Register once the server has been marked closed;
// the caller must not register the client and should instead tear it down.
var ErrClosed = errors.New("server is closed")

// Client is one registered worker's roster entry. Only the roster may
// mutate prev/next; workers treat Client as opaque after Register.
type Client struct {
	ID     uuid.UUID
	Stream io.Closer
	Cancel context.CancelFunc

	prev, next *Client
}

// Roster is the set of live clients plus the open/closed gate for
// admission. The open/closed check and registration are performed under
// the same mutex so no worker can self-register after a final CancelAll.
type Roster struct {
	mu     sync.Mutex
	head   *Client
	closed bool

	counter *counter
}

// New returns an empty, open Roster.
func New() *Roster {
	return &Roster{counter: newCounter()}
}

// Register splices client at the head of the roster and marks it active,
// unless the server has been closed, in which case it returns ErrClosed and
// the caller must destroy the client itself.
func (r *Roster) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	c.next = r.head
	if r.head != nil {
		r.head.prev = c
	}
	r.head = c

	r.counter.inc()
	return nil
}

// Unregister removes client from the roster and decrements the active
// count. It is not idempotent: a second call for the same client would
// decrement the count again, so it must be called at most once per client
// (workers call it exactly once, from their cleanup path).
func (r *Roster) Unregister(c *Client) {
	r.mu.Lock()
	if c.prev != nil {
		c.prev.next = c.next
	} else if r.head == c {
		r.head = c.next
	}
	if c.next != nil {
		c.next.prev = c.prev
	}
	c.prev, c.next = nil, nil
	r.mu.Unlock()

	r.counter.dec()
}

// CancelAll invokes every registered client's cancellation func. It does
// not remove anything from the roster; each cancelled worker removes
// itself via Unregister as it exits.
func (r *Roster) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := r.head; c != nil; c = c.next {
		c.Cancel()
	}
}

// Close marks the roster closed so future Register calls fail. It does not
// cancel existing clients; call CancelAll separately.
func (r *Roster) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Reopen marks the roster open again, allowing new registrations. A bare
// interrupt never calls this: it only kicks clients via CancelAll, leaving
// the roster's open/closed state untouched throughout.
func (r *Roster) Reopen() {
	r.mu.Lock()
	r.closed = false
	r.mu.Unlock()
}

// ActiveCount returns the current number of registered clients.
func (r *Roster) ActiveCount() int {
	return r.counter.get()
}

// WaitIdle blocks until ActiveCount reaches zero.
func (r *Roster) WaitIdle() {
	r.counter.waitZero()
}

// counter is the server-wide active-worker count with its own mutex and
// condition variable, deliberately distinct from the roster's mutex: it is
// always acquired only after the roster mutex has already been released
// (Register is the one exception, where it is taken while still holding
// the roster mutex, per the same fixed ordering: roster before counter,
// never the reverse).
type counter struct {
	mu     sync.Mutex
	cond   *sync.Cond
	active int
}

func newCounter() *counter {
	c := &counter{}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func (c *counter) inc() {
	c.mu.Lock()
	c.active++
	c.mu.Unlock()
}

func (c *counter) dec() {
	c.mu.Lock()
	c.active--
	if c.active == 0 {
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *counter) waitZero() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.active != 0 {
		c.cond.Wait()
	}
}
