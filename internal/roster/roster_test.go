package roster

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type nopCloser struct{ closed bool }

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func newClient() (*Client, *nopCloser, context.CancelFunc) {
	stream := &nopCloser{}
	_, cancel := context.WithCancel(context.Background())
	return &Client{ID: uuid.New(), Stream: stream, Cancel: cancel}, stream, cancel
}

func TestRegisterUnregister(t *testing.T) {
	r := New()
	c, _, _ := newClient()

	if err := r.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := r.ActiveCount(); got != 1 {
		t.Fatalf("ActiveCount: got %d, want 1", got)
	}

	r.Unregister(c)
	if got := r.ActiveCount(); got != 0 {
		t.Fatalf("ActiveCount after Unregister: got %d, want 0", got)
	}
}

func TestRegisterAfterCloseFails(t *testing.T) {
	r := New()
	r.Close()

	c, _, _ := newClient()
	if err := r.Register(c); err != ErrClosed {
		t.Fatalf("Register after Close: got %v, want ErrClosed", err)
	}
}

func TestReopenAllowsRegistration(t *testing.T) {
	r := New()
	r.Close()
	r.Reopen()

	c, _, _ := newClient()
	if err := r.Register(c); err != nil {
		t.Fatalf("Register after Reopen: %v", err)
	}
}

func TestCancelAllInvokesEveryClient(t *testing.T) {
	r := New()

	cancelled := make([]bool, 3)
	clients := make([]*Client, 3)
	for i := range clients {
		i := i
		clients[i] = &Client{
			ID:     uuid.New(),
			Stream: &nopCloser{},
			Cancel: func() { cancelled[i] = true },
		}
		if err := r.Register(clients[i]); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	r.CancelAll()

	for i, got := range cancelled {
		if !got {
			t.Fatalf("client %d was not cancelled", i)
		}
	}
}

func TestWaitIdleBlocksUntilAllUnregister(t *testing.T) {
	r := New()
	c1, _, _ := newClient()
	c2, _, _ := newClient()
	_ = r.Register(c1)
	_ = r.Register(c2)

	done := make(chan struct{})
	go func() {
		r.WaitIdle()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitIdle returned before roster drained")
	case <-time.After(30 * time.Millisecond):
	}

	r.Unregister(c1)
	select {
	case <-done:
		t.Fatal("WaitIdle returned with one client still registered")
	case <-time.After(30 * time.Millisecond):
	}

	r.Unregister(c2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitIdle did not return after full drain")
	}
}
