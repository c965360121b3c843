package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/llmbridge/pkg/log"
)

// Default limits.
const (
	DefaultMaxLineBuffer = 4096
	DefaultRetainBytes   = 2048
	DefaultIdleTimeout   = 30 * time.Second
	DefaultReadSize      = 512
)

var (
	// ErrIdleTimeout is returned when no bytes arrive for IdleTimeout.
	ErrIdleTimeout = errors.New("stream: idle timeout")

	// ErrIncomplete is returned when the body ends before a done record.
	ErrIncomplete = errors.New("stream: ended before done")
)

// UpstreamError is a record carrying an "error" member.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "stream: upstream error: " + e.Message
}

// Event is one decoded delta. The final event has an empty Text.
type Event struct {
	Text  string
	Final bool
}

// Config holds the decoder limits.
type Config struct {
	MaxLineBuffer int
	RetainBytes   int
	IdleTimeout   time.Duration
	ReadSize      int
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxLineBuffer: DefaultMaxLineBuffer,
		RetainBytes:   DefaultRetainBytes,
		IdleTimeout:   DefaultIdleTimeout,
		ReadSize:      DefaultReadSize,
	}
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used for dropped lines and truncations.
func WithLogger(logger log.Logger) Option {
	return func(d *Decoder) { d.logger = logger }
}

// WithTruncateHook is called each time the line buffer is truncated, with
// the number of bytes discarded.
func WithTruncateHook(hook func(dropped int)) Option {
	return func(d *Decoder) { d.onTruncate = hook }
}

// WithDropHook is called for each line that fails to decode.
func WithDropHook(hook func(line string, err error)) Option {
	return func(d *Decoder) { d.onDrop = hook }
}

// Decoder turns a line-oriented body into Events. A Decoder handles one
// body at a time.
type Decoder struct {
	cfg        Config
	logger     log.Logger
	onTruncate func(int)
	onDrop     func(string, error)

	line []byte
	done bool
}

// NewDecoder creates a Decoder. Invalid limits fall back to defaults.
func NewDecoder(cfg Config, opts ...Option) *Decoder {
	def := DefaultConfig()
	if cfg.MaxLineBuffer <= 0 {
		cfg.MaxLineBuffer = def.MaxLineBuffer
	}
	if cfg.RetainBytes <= 0 || cfg.RetainBytes >= cfg.MaxLineBuffer {
		cfg.RetainBytes = cfg.MaxLineBuffer / 2
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = def.ReadSize
	}
	d := &Decoder{
		cfg:    cfg,
		logger: log.NewNoopLogger(),
		line:   make([]byte, 0, cfg.MaxLineBuffer+1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type chunk struct {
	data []byte
	err  error
}

// Decode reads r until a done record, and calls emit for every event in
// order. The final event is always emitted last. Decode returns nil after
// the done record, ErrIdleTimeout when r stays silent, ErrIncomplete when
// r ends first, or the first error returned by emit.
//
// Reads happen on a separate goroutine so the idle timer can fire while a
// Read blocks. Callers should close r after Decode returns to release it.
func (d *Decoder) Decode(ctx context.Context, r io.Reader, emit func(Event) error) error {
	d.line = d.line[:0]
	d.done = false

	chunks := make(chan chunk)
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		for {
			buf := make([]byte, d.cfg.ReadSize)
			n, err := r.Read(buf)
			select {
			case chunks <- chunk{data: buf[:n], err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(d.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle.C:
			d.logger.Warn("stream idle timeout", log.Duration("idle", d.cfg.IdleTimeout))
			return ErrIdleTimeout
		case c := <-chunks:
			if len(c.data) > 0 {
				if !idle.Stop() {
					select {
					case <-idle.C:
					default:
					}
				}
				idle.Reset(d.cfg.IdleTimeout)
			}
			for _, b := range c.data {
				if err := d.feed(b, emit); err != nil {
					return err
				}
				if d.done {
					return nil
				}
			}
			if c.err == nil {
				continue
			}
			if !errors.Is(c.err, io.EOF) {
				return fmt.Errorf("read stream: %w", c.err)
			}
			// An unterminated last line still counts.
			if err := d.flush(emit); err != nil {
				return err
			}
			if d.done {
				return nil
			}
			return ErrIncomplete
		}
	}
}

func (d *Decoder) feed(b byte, emit func(Event) error) error {
	if b == '\n' || b == '\r' {
		return d.flush(emit)
	}
	d.line = append(d.line, b)
	if len(d.line) > d.cfg.MaxLineBuffer {
		dropped := len(d.line) - d.cfg.RetainBytes
		n := copy(d.line, d.line[dropped:])
		d.line = d.line[:n]
		d.logger.Warn("stream line truncated", log.Int("dropped", dropped))
		if d.onTruncate != nil {
			d.onTruncate(dropped)
		}
	}
	return nil
}

type record struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
	Error    string  `json:"error"`
}

func (d *Decoder) flush(emit func(Event) error) error {
	if len(d.line) == 0 {
		return nil
	}
	line := d.line
	d.line = d.line[:0]

	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		d.logger.Warn("stream line dropped", log.Int("length", len(line)), log.Err(err))
		if d.onDrop != nil {
			d.onDrop(string(line), err)
		}
		return nil
	}
	if rec.Error != "" {
		return &UpstreamError{Message: rec.Error}
	}
	if rec.Response != nil && *rec.Response != "" {
		if err := emit(Event{Text: *rec.Response}); err != nil {
			return err
		}
	}
	if rec.Done {
		d.done = true
		return emit(Event{Final: true})
	}
	return nil
}
