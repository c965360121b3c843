package forward

import (
	"context"

	"github.com/bft-labs/llmbridge/internal/ports"
)

// Log writes forwarded frames to the logger.
type Log struct {
	logger ports.Logger
}

// NewLog creates a log sink.
func NewLog(logger ports.Logger) *Log {
	return &Log{logger: logger}
}

// Forward implements ports.FrameForwarder.
func (l *Log) Forward(ctx context.Context, raw string) error {
	l.logger.Info("forwarded frame", ports.String("frame", raw))
	return nil
}
