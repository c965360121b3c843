package domain

import "errors"

var (
	// ErrAlreadyRunning is returned when Start() is called on a running bridge.
	ErrAlreadyRunning = errors.New("llmbridge: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped bridge.
	ErrNotRunning = errors.New("llmbridge: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("llmbridge: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("llmbridge: invalid configuration")

	// ErrInputClosed is returned by a transport whose input has ended and
	// cannot be reopened, such as stdin at EOF.
	ErrInputClosed = errors.New("llmbridge: transport input closed")

	// ErrNotObject is returned by ParseFrame for JSON that is not an object.
	ErrNotObject = errors.New("llmbridge: frame is not a JSON object")
)
