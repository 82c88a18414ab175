package gate

import (
	"context"
	"testing"
	"time"
)

func TestWaitPassesWhenOpen(t *testing.T) {
	g := New()
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Wait on open gate: %v", err)
	}
}

func TestStopBlocksAndReleaseWakes(t *testing.T) {
	g := New()
	g.Stop()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Release")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait after Release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Release")
	}
}

func TestWaitCancelledByContext(t *testing.T) {
	g := New()
	g.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- g.Wait(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Wait after cancel: got nil error, want ctx.Err()")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after context cancellation")
	}
}

func TestStoppedReflectsState(t *testing.T) {
	g := New()
	if g.Stopped() {
		t.Fatal("new gate reports stopped")
	}
	g.Stop()
	if !g.Stopped() {
		t.Fatal("gate does not report stopped after Stop")
	}
	g.Release()
	if g.Stopped() {
		t.Fatal("gate reports stopped after Release")
	}
}
