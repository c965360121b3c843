package ports

import (
	"context"
	"io"

	"github.com/bft-labs/llmbridge/internal/domain"
)

// Backend is the upstream generation service.
type Backend interface {
	// Probe returns the liveness status code. Only logged.
	Probe(ctx context.Context) (int, error)

	// CheckModel reports whether the model is installed.
	CheckModel(ctx context.Context, name string) domain.ModelStatus

	// Generate starts a streaming generation. The caller closes the body.
	Generate(ctx context.Context, model, prompt string) (io.ReadCloser, error)
}
