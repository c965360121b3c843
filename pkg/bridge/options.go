package bridge

import (
	"time"

	"github.com/bft-labs/llmbridge/internal/ports"
	"github.com/bft-labs/llmbridge/pkg/log"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Transport is an open device link.
type Transport = ports.Transport

// TransportOpener opens the device link. It is called again after the
// link fails.
type TransportOpener = ports.TransportOpener

// Forwarder receives the raw text of accepted setup frames.
type Forwarder = ports.FrameForwarder

// Option configures optional behavior of a Bridge.
type Option func(*options)

type options struct {
	httpClient HTTPClient
	logger     log.Logger
	opener     TransportOpener
	forwarder  Forwarder
	clock      func() time.Time
	onState    func(previous, current State, reason string)
}

// WithHTTPClient sets the client used for the backend and HTTP forwarding.
// If not provided, a client with a response-header timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTransport replaces the configured transport.
func WithTransport(opener TransportOpener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithForwarder replaces the configured forward sink.
func WithForwarder(f Forwarder) Option {
	return func(o *options) {
		o.forwarder = f
	}
}

// WithClock sets the clock used for frame timeouts and work ids.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithStateHandler is called after every lifecycle transition.
func WithStateHandler(fn func(previous, current State, reason string)) Option {
	return func(o *options) {
		o.onState = fn
	}
}

type stateFunc func(previous, current State, reason string)

func (f stateFunc) OnStateChange(previous, current State, reason string) {
	f(previous, current, reason)
}
