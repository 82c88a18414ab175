// Package supervisor owns the whole running server: the tree, gate,
// roster, listener, metrics endpoint and signal monitor, and the admin
// console read from stdin that drives the orderly shutdown sequence.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/kastelo/treedb/internal/config"
	"github.com/kastelo/treedb/internal/gate"
	"github.com/kastelo/treedb/internal/interp"
	"github.com/kastelo/treedb/internal/logging"
	"github.com/kastelo/treedb/internal/metrics"
	"github.com/kastelo/treedb/internal/netio"
	"github.com/kastelo/treedb/internal/roster"
	"github.com/kastelo/treedb/internal/sigmon"
	"github.com/kastelo/treedb/internal/tree"
	"github.com/kastelo/treedb/internal/worker"
)

// Server bundles every live subsystem of a running treedb instance.
type Server struct {
	cfg *config.Config
	log *slog.Logger

	tree     *tree.Tree
	gate     *gate.Gate
	roster   *roster.Roster
	interp   *interp.Interpreter
	metrics  *metrics.Registry
	listener netio.Listener
	sigmon   *sigmon.Monitor

	httpSrv *http.Server
}

// New wires every subsystem from cfg but does not start anything.
func New(cfg *config.Config) *Server {
	log := logging.New("supervisor")

	t := tree.New()
	r := roster.New()
	g := gate.New()
	in := interp.New(t, logging.New("interp"), cfg.MaxNameValueLen)

	m := metrics.New(
		func() float64 { return float64(r.ActiveCount()) },
		func() float64 { return float64(t.NodeCount()) },
	)

	s := &Server{
		cfg:      cfg,
		log:      log,
		tree:     t,
		gate:     g,
		roster:   r,
		interp:   in,
		metrics:  m,
		listener: netio.NewTCPListener(cfg.Endpoint, logging.New("netio")),
		sigmon:   sigmon.New(r, logging.New("sigmon")),
	}

	if cfg.MetricsEndpoint != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		s.httpSrv = &http.Server{Addr: cfg.MetricsEndpoint, Handler: mux}
	}

	return s
}

// Run starts every subsystem, serves the admin console read from stdin
// until it reaches EOF, then performs the shutdown sequence and returns.
//
// The signal monitor runs under its own cancellation, separate from the
// listener and metrics server: shutdown must cancel and join it before
// wiping the tree, so an interrupt racing the final teardown can never
// act on a roster or tree that shutdown has already torn down.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCtx, cancelSig := context.WithCancel(ctx)

	var sigWG sync.WaitGroup
	sigWG.Add(1)
	go func() {
		defer sigWG.Done()
		s.sigmon.Run(sigCtx)
	}()

	var wg sync.WaitGroup

	if s.httpSrv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.log.Error("metrics server error", "err", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.listener.Serve(ctx, func(stream netio.Stream) {
			worker.Handle(ctx, stream, worker.Deps{
				Roster:  s.roster,
				Gate:    s.gate,
				Interp:  s.interp,
				Metrics: s.metrics,
				Log:     logging.New("worker"),
			})
		}); err != nil {
			s.log.Error("listener error", "err", err)
		}
	}()

	s.runAdmin()

	s.shutdown(cancelSig, &sigWG, cancel)
	wg.Wait()
	return nil
}

// runAdmin reads admin commands from stdin until EOF:
//
//	s            stop the gate (pause all clients)
//	g            release the gate (resume all clients)
//	p [path]     print the tree, to stdout or to the named file
//
// EOF on stdin is the trigger for the final shutdown sequence.
func (s *Server) runAdmin() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "s":
			s.gate.Stop()
		case line == "g":
			s.gate.Release()
		case line == "p" || strings.HasPrefix(line, "p "):
			s.print(strings.TrimSpace(strings.TrimPrefix(line, "p")))
		case line == "":
			// ignore blank lines
		default:
			fmt.Fprintln(os.Stdout, "ill-formed command")
		}
	}
}

func (s *Server) print(path string) {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintln(os.Stdout, "bad file name")
			return
		}
		defer f.Close()
		w = f
	}
	if err := s.tree.Print(w); err != nil {
		s.log.Error("print error", "err", err)
	}
}

// shutdown performs the fixed teardown order: mark the roster closed so no
// further client can register, cancel every connected client, wait for
// them all to unregister, stop and join the signal monitor, wipe the
// tree, then cancel the listener/metrics context and stop the metrics
// server. The signal monitor must be joined strictly before the tree is
// wiped: otherwise an interrupt delivered during teardown could still be
// running its own cancel/wait cycle against a roster or tree that this
// sequence has already torn down.
func (s *Server) shutdown(cancelSig context.CancelFunc, sigWG *sync.WaitGroup, cancel context.CancelFunc) {
	s.log.Info("shutting down")

	s.roster.Close()
	s.roster.CancelAll()
	s.roster.WaitIdle()

	cancelSig()
	sigWG.Wait()

	s.tree.Cleanup()

	cancel()

	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
	}

	s.log.Info("shutdown complete")
}
