// Package metrics exposes the process-wide counters and gauges the
// supervisor serves over an HTTP /metrics endpoint using
// VictoriaMetrics/metrics, a dependency the teacher repo declared but
// never wired to a concrete subsystem.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// Registry owns every metric this server exposes. A single Registry is
// created by the supervisor and shared with the worker package so every
// command execution can bump its counters.
type Registry struct {
	set *metrics.Set

	activeWorkers *metrics.Gauge
	treeNodes     *metrics.Gauge
}

// New creates a Registry. activeWorkers and treeNodes are called lazily by
// the metrics scraper, so the supervisor can register gauges that read
// straight from the roster and tree without any polling goroutine.
func New(activeWorkers, treeNodes func() float64) *Registry {
	set := metrics.NewSet()
	return &Registry{
		set:           set,
		activeWorkers: set.NewGauge("treedb_active_workers", activeWorkers),
		treeNodes:     set.NewGauge("treedb_tree_nodes", treeNodes),
	}
}

// CommandExecuted increments the per-operation command counter. op is the
// single-byte command verb ("q", "a", "d", "f") or "ill-formed" for lines
// that are empty or start with any other byte; a line that starts with a
// verb but is rejected for its arguments is counted under that verb.
func (r *Registry) CommandExecuted(op string) {
	r.set.GetOrCreateCounter(fmt.Sprintf(`treedb_commands_total{op=%q}`, op)).Inc()
}

// ConnectionAccepted increments the lifetime connection counter.
func (r *Registry) ConnectionAccepted() {
	r.set.GetOrCreateCounter("treedb_connections_total").Inc()
}

// Handler returns an http.Handler serving this registry in Prometheus text
// exposition format at whatever path it is mounted on.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.set.WritePrometheus(w)
	})
}
