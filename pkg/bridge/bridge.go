package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/llmbridge/internal/adapters/forward"
	httpAdapter "github.com/bft-labs/llmbridge/internal/adapters/http"
	"github.com/bft-labs/llmbridge/internal/adapters/transport"
	"github.com/bft-labs/llmbridge/internal/admin"
	"github.com/bft-labs/llmbridge/internal/app"
	"github.com/bft-labs/llmbridge/internal/cliconfig"
	"github.com/bft-labs/llmbridge/internal/domain"
	"github.com/bft-labs/llmbridge/internal/ports"
	"github.com/bft-labs/llmbridge/pkg/framer"
	"github.com/bft-labs/llmbridge/pkg/log"
	"github.com/bft-labs/llmbridge/pkg/stream"
)

// Config holds the bridge configuration. Use DefaultConfig() to get a
// Config with sensible defaults.
type Config = cliconfig.Config

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// State is the lifecycle state of a Bridge.
type State = app.State

// Lifecycle states.
const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateFailed   = app.StateFailed
)

// Errors returned by the lifecycle methods and Config.Validate.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
)

// Update carries settings applied to a running bridge.
type Update = app.Update

const adminShutdownTimeout = 5 * time.Second

// Bridge is an embeddable serial-to-LLM bridge.
type Bridge struct {
	config    Config
	lifecycle *app.Lifecycle
	bridge    *app.Bridge
	admin     *admin.Server
	closers   []io.Closer
	logger    ports.Logger

	mu     sync.Mutex
	done   chan struct{}
	runErr error
}

// New creates a Bridge in StateStopped. It validates cfg and connects the
// forward sink, but does not touch the device.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: cfg.HTTPTimeout,
			},
		},
		logger: log.NewNoopLogger(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	b := &Bridge{config: cfg, logger: logger}

	var observer app.StateObserver
	if o.onState != nil {
		observer = stateFunc(o.onState)
	}
	b.lifecycle = app.NewLifecycle(logger, observer)

	opener := o.opener
	if opener == nil {
		opener = newOpener(cfg)
	}

	fwd := o.forwarder
	if fwd == nil {
		var err error
		fwd, err = b.newForwarder(cfg, o.httpClient)
		if err != nil {
			return nil, err
		}
	}

	backend := httpAdapter.NewBackend(cfg.BackendURL, o.httpClient, logger)

	b.bridge = app.NewBridge(app.BridgeConfig{
		PollInterval: cfg.PollInterval,
		Framer: framer.Config{
			Capacity:        cfg.FrameCapacity,
			Timeout:         cfg.FrameTimeout,
			ParseErrorGrace: cfg.ParseErrorGrace,
		},
		Dispatcher: app.DispatcherConfig{
			ResetDelay:   cfg.ResetDelay,
			DefaultModel: cfg.DefaultModel,
			Stream: stream.Config{
				MaxLineBuffer: cfg.MaxLineBuffer,
				RetainBytes:   cfg.RetainBytes,
				IdleTimeout:   cfg.IdleTimeout,
			},
			Now: o.clock,
		},
		SetLogLevel: cliconfig.SetLevel,
	}, opener, backend, fwd, logger)

	if cfg.AdminAddr != "" {
		b.admin = admin.New(cfg.AdminAddr, b.bridge, logger)
	}
	return b, nil
}

func newOpener(cfg Config) TransportOpener {
	switch cfg.Transport {
	case cliconfig.TransportTCP:
		return transport.NewTCP(cfg.TCPAddr)
	case cliconfig.TransportStdio:
		return transport.NewStdio()
	default:
		return transport.NewSerial(cfg.Device, cfg.Baud)
	}
}

func (b *Bridge) newForwarder(cfg Config, client HTTPClient) (Forwarder, error) {
	switch cfg.Forward {
	case cliconfig.ForwardLog:
		return forward.NewLog(b.logger), nil
	case cliconfig.ForwardHTTP:
		return forward.NewHTTP(cfg.ForwardURL, client), nil
	case cliconfig.ForwardNATS:
		n, err := forward.DialNATS(cfg.NATSURL, cfg.NATSSubject, b.logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, n)
		return n, nil
	default:
		return nil, nil
	}
}

// Start runs the bridge loop in the background and returns immediately.
// The provided context bounds the lifetime of the loop.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.lifecycle.SetCancel(cancel)
	done := make(chan struct{})
	b.done = done
	b.runErr = nil

	if b.admin != nil {
		b.lifecycle.Go(func() {
			if err := b.admin.Start(); err != nil {
				b.logger.Error("admin server failed", ports.Err(err))
			}
		})
	}

	b.lifecycle.Go(func() {
		defer close(done)

		// Stop may win the race before the loop starts.
		if err := b.lifecycle.TransitionTo(app.StateRunning, "loop starting"); err != nil {
			b.logger.Debug("loop not started", ports.Err(err))
			return
		}

		err := b.bridge.Run(runCtx)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		b.logger.Error("bridge loop failed", ports.Err(err))
		b.mu.Lock()
		b.runErr = err
		b.mu.Unlock()
		_ = b.lifecycle.TransitionTo(app.StateFailed, err.Error())
	})
	return nil
}

// Stop cancels the loop and waits for it to exit. It returns
// ErrShutdownTimeout if a streaming session did not unwind in time.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	b.lifecycle.Cancel()
	b.mu.Unlock()

	if b.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
		if err := b.admin.Shutdown(ctx); err != nil {
			b.logger.Warn("admin shutdown failed", ports.Err(err))
		}
		cancel()
	}

	err := b.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	for _, c := range b.closers {
		if cerr := c.Close(); cerr != nil {
			b.logger.Warn("close failed", ports.Err(cerr))
		}
	}

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateFailed, "shutdown timeout")
		return err
	}
	_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	return nil
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (b *Bridge) Status() State {
	return b.lifecycle.State()
}

// Wait blocks until the loop started by the last Start exits, and returns
// the error it failed with, if any.
func (b *Bridge) Wait() error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}
	<-done

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runErr
}

// Inject feeds bytes into the loop as if they came from the device.
func (b *Bridge) Inject(ctx context.Context, p []byte) error {
	return b.bridge.Inject(ctx, p)
}

// Apply hands reloaded settings to the running loop.
func (b *Bridge) Apply(u Update) {
	b.bridge.Apply(u)
}

// String describes the bridge for logs.
func (b *Bridge) String() string {
	return fmt.Sprintf("llmbridge(%s -> %s)", b.config.Transport, b.config.BackendURL)
}
