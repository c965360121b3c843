package framer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bft-labs/llmbridge/pkg/log"
)

// Default limits.
const (
	DefaultCapacity        = 2048
	DefaultTimeout         = time.Second
	DefaultParseErrorGrace = 50 * time.Millisecond
)

// Kind distinguishes the outcomes returned by Feed.
type Kind int

const (
	KindComplete Kind = iota + 1
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindComplete:
		return "complete"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Outcome is produced when the outermost brace of an object closes.
type Outcome struct {
	Kind Kind

	// Text is the trimmed object text. For KindError it is the text that
	// failed to parse.
	Text string

	// Err is the parse diagnostic for KindError.
	Err error
}

// ResetReason names why buffered bytes were discarded.
type ResetReason string

const (
	ResetTimeout    ResetReason = "timeout"
	ResetParseGrace ResetReason = "parse_error_grace"
	ResetOverflow   ResetReason = "overflow"
	ResetUnbalanced ResetReason = "unbalanced"
	ResetEmpty      ResetReason = "empty"
)

// Config holds the reader limits.
type Config struct {
	// Capacity is the buffer size in bytes. One byte is reserved, so the
	// largest frame is Capacity-1 bytes.
	Capacity int

	// Timeout discards a partial frame when no byte arrived for this long.
	Timeout time.Duration

	// ParseErrorGrace is how long a frame that failed to parse is kept
	// waiting for continuation bytes.
	ParseErrorGrace time.Duration
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		Capacity:        DefaultCapacity,
		Timeout:         DefaultTimeout,
		ParseErrorGrace: DefaultParseErrorGrace,
	}
}

// Option configures a Reader.
type Option func(*Reader)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reader) { r.now = now }
}

// WithLogger sets the logger used for discarded frames.
func WithLogger(logger log.Logger) Option {
	return func(r *Reader) { r.logger = logger }
}

// WithResetHook registers a callback invoked whenever buffered bytes are
// discarded, with the number of bytes dropped.
func WithResetHook(hook func(reason ResetReason, dropped int)) Option {
	return func(r *Reader) { r.onReset = hook }
}

// Reader accumulates bytes until a brace-balanced JSON object is complete.
type Reader struct {
	cfg     Config
	now     func() time.Time
	logger  log.Logger
	onReset func(ResetReason, int)

	buf      []byte
	lastByte time.Time
	depth    int
	inString bool
	escape   bool

	parseFailed bool
	parseErrAt  time.Time
}

// New creates a Reader. Zero or negative limits fall back to defaults.
func New(cfg Config, opts ...Option) *Reader {
	def := DefaultConfig()
	if cfg.Capacity < 2 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ParseErrorGrace <= 0 {
		cfg.ParseErrorGrace = def.ParseErrorGrace
	}
	r := &Reader{
		cfg:    cfg,
		now:    time.Now,
		logger: log.NewNoopLogger(),
		buf:    make([]byte, 0, cfg.Capacity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Len returns the number of buffered bytes.
func (r *Reader) Len() int { return len(r.buf) }

// Depth returns the current brace depth.
func (r *Reader) Depth() int { return r.depth }

// InString reports whether the reader is inside a string literal.
func (r *Reader) InString() bool { return r.inString }

// Tick runs the time-based checks. Call it once per scheduling tick,
// before feeding the bytes that became available during that tick.
func (r *Reader) Tick() {
	now := r.now()
	if r.parseFailed && now.Sub(r.parseErrAt) > r.cfg.ParseErrorGrace {
		r.reset(ResetParseGrace)
		return
	}
	if len(r.buf) > 0 && now.Sub(r.lastByte) > r.cfg.Timeout {
		r.reset(ResetTimeout)
	}
}

// FeedBytes feeds p until an outcome is produced or p is exhausted. It
// returns the outcome, the number of bytes consumed, and whether an
// outcome was produced. Unconsumed bytes belong to later frames.
func (r *Reader) FeedBytes(p []byte) (Outcome, int, bool) {
	for i, b := range p {
		if out, ok := r.Feed(b); ok {
			return out, i + 1, true
		}
	}
	return Outcome{}, len(p), false
}

// Feed consumes a single byte.
func (r *Reader) Feed(b byte) (Outcome, bool) {
	// Any byte after a failed parse is a continuation of the split frame.
	r.parseFailed = false

	if len(r.buf) == 0 && (b == '\n' || b == '\r') {
		return Outcome{}, false
	}

	if len(r.buf) >= r.cfg.Capacity-1 {
		r.reset(ResetOverflow)
		return Outcome{}, false
	}

	r.buf = append(r.buf, b)
	r.lastByte = r.now()

	if r.escape {
		r.escape = false
		return Outcome{}, false
	}

	switch b {
	case '\\':
		r.escape = true
	case '"':
		r.inString = !r.inString
	case '{':
		if !r.inString {
			r.depth++
		}
	case '}':
		if r.inString {
			break
		}
		r.depth--
		if r.depth == 0 {
			return r.complete()
		}
		if r.depth < 0 {
			r.reset(ResetUnbalanced)
		}
	}
	return Outcome{}, false
}

func (r *Reader) complete() (Outcome, bool) {
	text := bytes.TrimSpace(r.buf)
	if len(text) == 0 {
		r.reset(ResetEmpty)
		return Outcome{}, false
	}

	var v json.RawMessage
	if err := json.Unmarshal(text, &v); err != nil {
		// Keep the bytes: the frame may have been split by a spurious
		// delimiter and complete within the grace window.
		r.parseFailed = true
		r.parseErrAt = r.now()
		r.logger.Warn("frame parse failed",
			log.Int("length", len(text)),
			log.Err(err),
		)
		return Outcome{Kind: KindError, Text: string(text), Err: fmt.Errorf("parse frame: %w", err)}, true
	}

	out := Outcome{Kind: KindComplete, Text: string(text)}
	r.clear()
	return out, true
}

func (r *Reader) reset(reason ResetReason) {
	dropped := len(r.buf)
	r.clear()
	r.logger.Warn("frame buffer reset",
		log.String("reason", string(reason)),
		log.Int("dropped", dropped),
	)
	if r.onReset != nil {
		r.onReset(reason, dropped)
	}
}

func (r *Reader) clear() {
	r.buf = r.buf[:0]
	r.depth = 0
	r.inString = false
	r.escape = false
	r.parseFailed = false
}
