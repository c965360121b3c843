package transport

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/llmbridge/internal/domain"
	"github.com/bft-labs/llmbridge/internal/ports"
)

// Stdio uses the process's stdin and stdout. The streams are shared
// across opens and never closed. Once stdin reaches EOF, reads and later
// opens fail with domain.ErrInputClosed and the bridge stops.
type Stdio struct {
	in  io.Reader
	out io.Writer

	mu     sync.Mutex
	closed atomic.Bool
}

// NewStdio creates an opener over os.Stdin and os.Stdout.
func NewStdio() *Stdio {
	return &Stdio{in: os.Stdin, out: os.Stdout}
}

// Name implements ports.TransportOpener.
func (s *Stdio) Name() string {
	return "stdio"
}

// Open implements ports.TransportOpener.
func (s *Stdio) Open(ctx context.Context) (ports.Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, domain.ErrInputClosed
	}
	return &stdioConn{s: s}, nil
}

type stdioConn struct {
	s *Stdio
}

func (c *stdioConn) Read(p []byte) (int, error) {
	n, err := c.s.in.Read(p)
	if errors.Is(err, io.EOF) {
		c.s.closed.Store(true)
		return n, domain.ErrInputClosed
	}
	return n, err
}

func (c *stdioConn) Write(p []byte) (int, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.out.Write(p)
}

func (c *stdioConn) Close() error {
	return nil
}
