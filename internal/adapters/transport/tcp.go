package transport

import (
	"context"
	"net"
	"time"

	"github.com/bft-labs/llmbridge/internal/ports"
)

const dialTimeout = 5 * time.Second

// TCP dials a serial-over-network endpoint, e.g. ser2net.
type TCP struct {
	Addr string
}

// NewTCP creates an opener for addr.
func NewTCP(addr string) *TCP {
	return &TCP{Addr: addr}
}

// Name implements ports.TransportOpener.
func (t *TCP) Name() string {
	return "tcp:" + t.Addr
}

// Open implements ports.TransportOpener.
func (t *TCP) Open(ctx context.Context) (ports.Transport, error) {
	d := net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}
	return d.DialContext(ctx, "tcp", t.Addr)
}
