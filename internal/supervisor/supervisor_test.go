package supervisor

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kastelo/treedb/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Endpoint:        "127.0.0.1:0",
		MetricsEndpoint: "",
		LogLevel:        "error",
		MaxNameValueLen: 255,
	}
}

func TestNewWiresGaugesToLiveState(t *testing.T) {
	s := New(testConfig(t))

	if err := s.tree.Add("alice", "30"); err != nil {
		t.Fatalf("tree.Add: %v", err)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rw := httptest.NewRecorder()
	s.metrics.Handler().ServeHTTP(rw, req)

	body := rw.Body.String()
	if !strings.Contains(body, "treedb_tree_nodes 1") {
		t.Fatalf("metrics output missing tree node count, got:\n%s", body)
	}
	if !strings.Contains(body, "treedb_active_workers 0") {
		t.Fatalf("metrics output missing active worker count, got:\n%s", body)
	}
}

func TestPrintToStdoutAndFile(t *testing.T) {
	s := New(testConfig(t))
	_ = s.tree.Add("alice", "30")

	dir := t.TempDir()
	path := filepath.Join(dir, "dump.txt")
	s.print(path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "alice") {
		t.Fatalf("dump missing node, got:\n%s", data)
	}
}

func TestPrintBadPathReportsError(t *testing.T) {
	s := New(testConfig(t))

	// print's failure path is exercised by supplying a path in a directory
	// that cannot exist; its diagnostic goes to stdout, so capture it.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	s.print(filepath.Join(t.TempDir(), "no-such-dir", "dump.txt"))
	os.Stdout = orig
	_ = w.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.Contains(string(out), "bad file name") {
		t.Fatalf("print with bad path: got %q, want bad file name", out)
	}
}

func TestShutdownDrainsRosterAndWipesTree(t *testing.T) {
	s := New(testConfig(t))
	_ = s.tree.Add("alice", "30")

	sigCtx, cancelSig := context.WithCancel(context.Background())
	var sigWG sync.WaitGroup
	sigWG.Add(1)
	go func() {
		defer sigWG.Done()
		s.sigmon.Run(sigCtx)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.shutdown(cancelSig, &sigWG, cancel)

	if s.tree.NodeCount() != 0 {
		t.Fatalf("NodeCount after shutdown: got %d, want 0", s.tree.NodeCount())
	}
	if ctx.Err() == nil {
		t.Fatal("shutdown did not cancel the root context")
	}
	if sigCtx.Err() == nil {
		t.Fatal("shutdown did not cancel the signal monitor context")
	}
}
