// Package interp implements the single-line command interpreter: it parses
// one command, dispatches to the tree, and formats the response string.
package interp

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/kastelo/treedb/internal/tree"
)

// DefaultMaxFieldLen is the maximum length in bytes of a single name or
// value token accepted from the wire when a caller does not override it.
// It is one less than tree.MaxNodeLen: the interpreter's own scanning
// bound defaults to 255, while the tree's node constructor bound is 256
// (see boundary cases in the spec: 255 accepted, 256 rejected).
const DefaultMaxFieldLen = 255

// errCancelled is returned internally by file when ctx is cancelled while
// processing an "f" batch file; Execute then returns an empty response,
// which callers abandon like any other cancellation point.
var errCancelled = errors.New("cancelled")

// Interpreter dispatches command lines against a Tree.
type Interpreter struct {
	tree        *tree.Tree
	log         *slog.Logger
	maxFieldLen int
}

// New returns an Interpreter backed by t. maxFieldLen bounds the length in
// bytes of a single name or value token; a value <= 0 falls back to
// DefaultMaxFieldLen.
func New(t *tree.Tree, log *slog.Logger, maxFieldLen int) *Interpreter {
	if maxFieldLen <= 0 {
		maxFieldLen = DefaultMaxFieldLen
	}
	return &Interpreter{tree: t, log: log, maxFieldLen: maxFieldLen}
}

// Execute interprets a single, newline-free command line and returns the
// response line (without trailing newline). ctx is checked for
// cancellation between lines of an "f" batch file so a worker cancelled
// mid-batch can unwind; if ctx is cancelled the returned string is not
// meaningful and must not be written to the client.
func (in *Interpreter) Execute(ctx context.Context, line string) string {
	resp, err := in.execute(ctx, line)
	if err != nil {
		return ""
	}
	return resp
}

// execute parses op and its arguments the way the source's sscanf-based
// interpret_command does: each conversion reads exactly one token and
// stops, so a line with more tokens than the command needs is not
// ill-formed, the trailing tokens are simply never scanned. Only a
// shortage of tokens (sscanf_ret < required) is ill-formed.
func (in *Interpreter) execute(ctx context.Context, line string) (string, error) {
	if len(line) <= 1 {
		return "ill-formed command", nil
	}

	op := line[0]
	fields := strings.Fields(line[1:])

	var arity int
	switch op {
	case 'q', 'd', 'f':
		arity = 1
	case 'a':
		arity = 2
	default:
		return "ill-formed command", nil
	}

	if len(fields) < arity {
		return "ill-formed command", nil
	}
	fields = fields[:arity]

	for _, f := range fields {
		if len(f) > in.maxFieldLen {
			return "ill-formed command", nil
		}
	}

	switch op {
	case 'q':
		return in.query(fields[0]), nil
	case 'a':
		return in.add(fields[0], fields[1]), nil
	case 'd':
		return in.remove(fields[0]), nil
	case 'f':
		return in.file(ctx, fields[0])
	}

	return "ill-formed command", nil
}

func (in *Interpreter) query(name string) string {
	value, err := in.tree.Query(name)
	if err != nil {
		return "not found"
	}
	return value
}

func (in *Interpreter) add(name, value string) string {
	if err := in.tree.Add(name, value); err != nil {
		if errors.Is(err, tree.ErrDuplicate) {
			return "already in database"
		}
		return "ill-formed command"
	}
	return "added"
}

func (in *Interpreter) remove(name string) string {
	if err := in.tree.Remove(name); err != nil {
		return "not in database"
	}
	return "removed"
}

// file processes every line of the named file as a nested command,
// recursively. Nested "f" commands are honored, matching the source
// interpreter's unconditional recursion. Only the final outcome ("file
// processed" or "bad file name") is ever observable by the client; the
// per-line responses inside the batch are discarded, exactly as the
// original interpret_command does by overwriting its response buffer on
// every recursive call.
func (in *Interpreter) file(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "bad file name", nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// Cancellation point: a batch file read is not itself a
		// cancellation point, so treedb checks explicitly after each line,
		// mirroring the source's pthread_testcancel() placement.
		if ctx.Err() != nil {
			return "", errCancelled
		}
		in.Execute(ctx, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		in.log.Warn("error reading batch file", "path", path, "err", err)
	}

	return "file processed", nil
}
