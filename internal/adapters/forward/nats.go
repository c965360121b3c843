package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bft-labs/llmbridge/internal/ports"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "llmbridge.frames"

// NATS publishes forwarded frames on a subject.
type NATS struct {
	conn    *nats.Conn
	subject string
}

// DialNATS connects to url and returns a sink publishing on subject.
func DialNATS(url, subject string, logger ports.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("llmbridge"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", ports.Err(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", ports.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNATS(conn, subject), nil
}

// NewNATS wraps an existing connection.
func NewNATS(conn *nats.Conn, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{conn: conn, subject: subject}
}

// Forward implements ports.FrameForwarder. Publish is fire-and-forget; a
// flush error is reported only when ctx carries a deadline.
func (n *NATS) Forward(ctx context.Context, raw string) error {
	if err := n.conn.Publish(n.subject, []byte(raw)); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	if _, ok := ctx.Deadline(); ok {
		if err := n.conn.FlushWithContext(ctx); err != nil {
			return fmt.Errorf("flush %s: %w", n.subject, err)
		}
	}
	return nil
}

// Close drains and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
