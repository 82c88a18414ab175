package sigmon

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/kastelo/treedb/internal/roster"
)

func TestRunExitsOnContextCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	m := New(roster.New(), log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRunCancelsRosterOnInterrupt(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	r := roster.New()
	m := New(r, log)

	cancelled := make(chan struct{}, 1)
	client := &roster.Client{Stream: nopCloser{}, Cancel: func() {
		select {
		case cancelled <- struct{}{}:
		default:
		}
	}}
	if err := r.Register(client); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go m.Run(ctx)

	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Skipf("cannot self-signal in this environment: %v", err)
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("client was not cancelled after interrupt")
	}

	r.Unregister(client)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
