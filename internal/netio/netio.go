// Package netio is the external collaborator boundary named in the spec:
// the TCP listener and the newline-framed byte stream. The concurrency
// substrate (worker, gate, roster, tree) never imports net directly; it
// only consumes the Stream and Listener interfaces defined here.
package netio

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
)

// maxLineBytes bounds a single command line. Names and values are capped
// at interp.DefaultMaxFieldLen (255) each by default, so this leaves
// generous headroom for the "a <name> <value>" form plus whitespace.
const maxLineBytes = 4096

// Stream is a bidirectional, line-framed byte channel. The core takes
// ownership of a Stream at admission and is responsible for closing it.
type Stream interface {
	// ReadCommand reads one newline-terminated command line, without the
	// trailing newline. It returns io.EOF when the peer closes the
	// connection.
	ReadCommand() (string, error)
	// WriteResponse writes one response line, appending the trailing
	// newline itself.
	WriteResponse(line string) error
	Close() error
}

// AdmitFunc is called once per accepted connection.
type AdmitFunc func(Stream)

// Listener accepts connections and hands each one to admit.
type Listener interface {
	Serve(ctx context.Context, admit AdmitFunc) error
}

// tcpStream implements Stream over a net.Conn using newline framing.
type tcpStream struct {
	conn    net.Conn
	scanner *bufio.Scanner
	writer  *bufio.Writer
}

func newTCPStream(conn net.Conn) *tcpStream {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), maxLineBytes)
	return &tcpStream{
		conn:    conn,
		scanner: scanner,
		writer:  bufio.NewWriter(conn),
	}
}

func (s *tcpStream) ReadCommand() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *tcpStream) WriteResponse(line string) error {
	if _, err := s.writer.WriteString(line); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *tcpStream) Close() error {
	return s.conn.Close()
}

// TCPListener is the default Listener, binding a TCP address. Writes to a
// peer that has closed its side of the connection surface as an ordinary
// error return from WriteResponse (net.Conn never delivers SIGPIPE to the
// process), which satisfies the "pipe-closed masked process-wide"
// requirement without any explicit signal handling here.
type TCPListener struct {
	addr string
	log  *slog.Logger
}

// NewTCPListener returns a Listener that will bind addr when Serve is called.
func NewTCPListener(addr string, log *slog.Logger) *TCPListener {
	return &TCPListener{addr: addr, log: log}
}

// Serve binds addr and accepts connections until ctx is cancelled, handing
// each one to admit on its own goroutine.
func (l *TCPListener) Serve(ctx context.Context, admit AdmitFunc) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	l.log.Info("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.log.Error("accept error", "err", err)
			continue
		}
		go admit(newTCPStream(conn))
	}
}
