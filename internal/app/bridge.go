package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bft-labs/llmbridge/internal/domain"
	"github.com/bft-labs/llmbridge/internal/metrics"
	"github.com/bft-labs/llmbridge/internal/ports"
	"github.com/bft-labs/llmbridge/pkg/framer"
)

// Default loop settings.
const (
	DefaultPollInterval = 5 * time.Millisecond
	DefaultReadSize     = 256
	probeTimeout        = 5 * time.Second
)

var errNoTransport = errors.New("transport not open")

// BridgeConfig contains configuration for the bridge loop.
type BridgeConfig struct {
	PollInterval time.Duration
	Framer       framer.Config
	Dispatcher   DispatcherConfig

	// SetLogLevel applies a reloaded log level. Optional.
	SetLogLevel func(level string) error
}

// Update carries reloaded settings into the loop. Empty fields are left
// unchanged.
type Update struct {
	DefaultModel string
	LogLevel     string
}

// Bridge owns the transport and runs the framer and dispatcher on a single
// goroutine.
type Bridge struct {
	config     BridgeConfig
	opener     ports.TransportOpener
	backend    ports.Backend
	reader     *framer.Reader
	dispatcher *Dispatcher
	logger     ports.Logger

	transport ports.Transport
	inject    chan []byte
	updates   chan Update
	running   atomic.Bool
}

// NewBridge wires a bridge. forwarder may be nil.
func NewBridge(
	config BridgeConfig,
	opener ports.TransportOpener,
	backend ports.Backend,
	forwarder ports.FrameForwarder,
	logger ports.Logger,
) *Bridge {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Dispatcher.Now == nil {
		config.Dispatcher.Now = time.Now
	}

	b := &Bridge{
		config:  config,
		opener:  opener,
		backend: backend,
		logger:  logger,
		inject:  make(chan []byte, 16),
		updates: make(chan Update, 4),
	}
	b.reader = framer.New(config.Framer,
		framer.WithClock(config.Dispatcher.Now),
		framer.WithLogger(logger),
		framer.WithResetHook(func(reason framer.ResetReason, _ int) {
			metrics.FramerResets.WithLabelValues(string(reason)).Inc()
		}),
	)
	b.dispatcher = NewDispatcher(config.Dispatcher, &domain.Session{}, backend, b, forwarder, logger)
	return b
}

// Dispatcher returns the bridge's dispatcher.
func (b *Bridge) Dispatcher() *Dispatcher {
	return b.dispatcher
}

// Running reports whether Run is serving.
func (b *Bridge) Running() bool {
	return b.running.Load()
}

// Inject queues bytes as if they had arrived on the transport.
func (b *Bridge) Inject(ctx context.Context, p []byte) error {
	if !b.running.Load() {
		return domain.ErrNotRunning
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	select {
	case b.inject <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply queues a settings update for the loop.
func (b *Bridge) Apply(u Update) {
	select {
	case b.updates <- u:
	default:
		b.logger.Warn("config update dropped: loop busy")
	}
}

// WriteEnvelope writes one reply to the open transport. It is only called
// from the loop goroutine.
func (b *Bridge) WriteEnvelope(env domain.ResponseEnvelope) error {
	if b.transport == nil {
		return errNoTransport
	}
	if _, err := env.WriteTo(b.transport); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

// Run opens the transport and serves it until ctx is canceled. A failed
// transport is closed and reopened with backoff.
func (b *Bridge) Run(ctx context.Context) error {
	b.running.Store(true)
	defer b.running.Store(false)

	b.probe(ctx)

	backoff := newBackoff(DefaultBackoffInitial, DefaultBackoffMax)
	for {
		t, err := b.opener.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, domain.ErrInputClosed) {
				b.logger.Info("transport input closed", ports.String("transport", b.opener.Name()))
				return nil
			}
			metrics.TransportReconnects.Inc()
			b.logger.Error("transport open failed",
				ports.String("transport", b.opener.Name()),
				ports.Err(err),
				ports.Duration("retry_in", backoff.Current()),
			)
			if err := backoff.Wait(ctx); err != nil {
				return err
			}
			continue
		}
		backoff.Reset()
		b.logger.Info("transport open", ports.String("transport", b.opener.Name()))

		err = b.serve(ctx, t)
		b.transport = nil
		_ = t.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, domain.ErrInputClosed) {
			b.logger.Info("transport input closed", ports.String("transport", b.opener.Name()))
			return nil
		}
		metrics.TransportReconnects.Inc()
		b.logger.Warn("transport lost",
			ports.String("transport", b.opener.Name()),
			ports.Err(err),
		)
		if err := backoff.Wait(ctx); err != nil {
			return err
		}
	}
}

func (b *Bridge) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	code, err := b.backend.Probe(ctx)
	if err != nil {
		b.logger.Warn("backend unreachable", ports.Err(err))
		return
	}
	b.logger.Info("backend probe", ports.Int("status", code))
}

// serve runs the cooperative loop over one open transport. Each pass runs
// the framer timers, feeds pending bytes until one frame completes, and
// dispatches it before reading further.
func (b *Bridge) serve(ctx context.Context, t ports.Transport) error {
	b.transport = t

	incoming := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			buf := make([]byte, DefaultReadSize)
			n, err := t.Read(buf)
			if n > 0 {
				select {
				case incoming <- buf[:n]:
				case <-done:
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(b.config.PollInterval)
	defer ticker.Stop()

	var pending []byte
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, domain.ErrInputClosed) {
				// Frames already read still get answered.
				for len(pending) > 0 {
					pending = b.step(ctx, pending)
				}
			}
			return err
		case u := <-b.updates:
			b.apply(u)
		case p := <-incoming:
			pending = append(pending, p...)
		case p := <-b.inject:
			pending = append(pending, p...)
		case <-ticker.C:
		}
		pending = b.step(ctx, pending)
	}
}

// step is one scheduler tick. It returns the bytes not yet consumed.
func (b *Bridge) step(ctx context.Context, pending []byte) []byte {
	b.reader.Tick()
	if len(pending) == 0 {
		return pending
	}

	outcome, consumed, ok := b.reader.FeedBytes(pending)
	rest := pending[consumed:]
	if len(rest) == 0 {
		rest = pending[:0]
	}
	if !ok {
		return rest
	}

	switch outcome.Kind {
	case framer.KindComplete:
		metrics.FramesCompleted.Inc()
		frame, err := domain.ParseFrame(outcome.Text)
		if err != nil {
			b.logger.Warn("frame dropped", ports.Err(err))
			return rest
		}
		b.dispatcher.Dispatch(ctx, frame)
	case framer.KindError:
		metrics.FrameParseErrors.Inc()
		b.logger.Warn("frame parse error", ports.Err(outcome.Err))
	}
	return rest
}

func (b *Bridge) apply(u Update) {
	if u.DefaultModel != "" {
		b.dispatcher.SetDefaultModel(u.DefaultModel)
		b.logger.Info("default model updated", ports.String("model", u.DefaultModel))
	}
	if u.LogLevel != "" && b.config.SetLogLevel != nil {
		if err := b.config.SetLogLevel(u.LogLevel); err != nil {
			b.logger.Warn("log level not applied", ports.String("level", u.LogLevel), ports.Err(err))
			return
		}
		b.logger.Info("log level updated", ports.String("level", u.LogLevel))
	}
}
