// Package sigmon runs the server's signal monitor: a dedicated goroutine
// that waits for an interrupt and kicks every connected client without
// touching the roster's open/closed state, the Go analogue of a thread
// blocked in sigwait() on a process-wide signal mask.
package sigmon

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/kastelo/treedb/internal/roster"
)

// Monitor reacts to interrupts by cancelling every registered client.
type Monitor struct {
	roster *roster.Roster
	log    *slog.Logger
}

// New returns a Monitor that will cancel clients registered in r.
func New(r *roster.Roster, log *slog.Logger) *Monitor {
	return &Monitor{roster: r, log: log}
}

// Run blocks, reacting to os.Interrupt until ctx is cancelled. Each
// interrupt cancels every registered client and waits for them to
// unregister, then goes back to waiting for the next interrupt — mirroring
// the source's re-arm-after-cancel signal handler, which leaves the
// process listening rather than exiting on the first signal. The roster's
// open/closed state is never touched here: a bare interrupt kicks clients,
// it does not stop new ones from connecting.
func (m *Monitor) Run(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			m.log.Info("interrupt received, cancelling all clients")
			m.roster.CancelAll()
			m.roster.WaitIdle()
			m.log.Info("all clients cancelled")
		}
	}
}
