package http

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bft-labs/llmbridge/internal/domain"
	"github.com/bft-labs/llmbridge/internal/metrics"
	"github.com/bft-labs/llmbridge/internal/ports"
	"github.com/bft-labs/llmbridge/pkg/ollama"
)

// Backend implements ports.Backend over an Ollama-style HTTP API.
type Backend struct {
	client *ollama.Client
	logger ports.Logger
}

// NewBackend creates a backend for baseURL.
func NewBackend(baseURL string, client ports.HTTPClient, logger ports.Logger) *Backend {
	return &Backend{
		client: ollama.NewClient(baseURL, client, logger),
		logger: logger,
	}
}

// Probe checks /api/version.
func (b *Backend) Probe(ctx context.Context) (int, error) {
	defer observe("version", time.Now())
	return b.client.Version(ctx)
}

// CheckModel looks the model up in /api/tags.
func (b *Backend) CheckModel(ctx context.Context, name string) domain.ModelStatus {
	defer observe("tags", time.Now())

	err := b.client.HasModel(ctx, name)
	switch {
	case err == nil:
		return domain.ModelOK
	case errors.Is(err, ollama.ErrModelNotFound):
		return domain.ModelNotFound
	default:
		b.logger.Warn("model lookup failed", ports.String("model", name), ports.Err(err))
		return domain.ModelUnavailable
	}
}

// Generate starts a streaming generation. Latency is measured to the
// response headers.
func (b *Backend) Generate(ctx context.Context, model, prompt string) (io.ReadCloser, error) {
	defer observe("generate", time.Now())
	return b.client.Generate(ctx, model, prompt)
}

func observe(endpoint string, start time.Time) {
	metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
