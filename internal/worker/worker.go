// Package worker implements the per-connection client lifecycle: admit,
// register in the roster, run the read/gate/interpret/write loop, and
// clean up exactly once on every exit path (EOF, I/O error, or
// cancellation).
package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kastelo/treedb/internal/gate"
	"github.com/kastelo/treedb/internal/interp"
	"github.com/kastelo/treedb/internal/metrics"
	"github.com/kastelo/treedb/internal/netio"
	"github.com/kastelo/treedb/internal/roster"
)

// Deps bundles everything a worker needs, shared across every connection.
type Deps struct {
	Roster  *roster.Roster
	Gate    *gate.Gate
	Interp  *interp.Interpreter
	Metrics *metrics.Registry
	Log     *slog.Logger
}

// Handle is the admission entry point the listener calls once per accepted
// connection. It never returns until the connection is fully drained and
// cleaned up.
func Handle(parent context.Context, stream netio.Stream, d Deps) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client := &roster.Client{
		ID:     uuid.New(),
		Stream: stream,
		Cancel: cancel,
	}

	if err := d.Roster.Register(client); err != nil {
		// The server was closed between accept and registration; the
		// worker must not register and simply tears itself down.
		_ = stream.Close()
		return
	}

	if d.Metrics != nil {
		d.Metrics.ConnectionAccepted()
	}

	log := d.Log.With("client", client.ID)
	log.Info("client connected")
	defer func() {
		d.Roster.Unregister(client)
		_ = stream.Close()
		log.Info("client disconnected")
	}()

	// Cancellation must reach a worker blocked in the stream read, which
	// is otherwise not itself a cancellation point: closing the stream is
	// what unblocks it.
	go func() {
		<-ctx.Done()
		_ = stream.Close()
	}()

	serve(ctx, stream, d, log)
}

func serve(ctx context.Context, stream netio.Stream, d Deps, log *slog.Logger) {
	for {
		line, err := stream.ReadCommand()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Info("stream read error", "err", err)
			}
			return
		}

		if err := d.Gate.Wait(ctx); err != nil {
			return
		}

		resp := d.Interp.Execute(ctx, line)
		if ctx.Err() != nil {
			// Cancelled mid-command (e.g. inside an "f" batch); no
			// response is observable for this line.
			return
		}

		if d.Metrics != nil {
			d.Metrics.CommandExecuted(commandOp(line))
		}

		if err := stream.WriteResponse(resp); err != nil {
			log.Info("stream write error", "err", err)
			return
		}
	}
}

func commandOp(line string) string {
	if len(line) == 0 {
		return "ill-formed"
	}
	switch line[0] {
	case 'q', 'a', 'd', 'f':
		return string(line[0])
	default:
		return "ill-formed"
	}
}
