package forward

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bft-labs/llmbridge/internal/ports"
)

// HTTP posts forwarded frames to a peer URL as application/json.
type HTTP struct {
	url    string
	client ports.HTTPClient
}

// NewHTTP creates an HTTP sink.
func NewHTTP(url string, client ports.HTTPClient) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{url: url, client: client}
}

// Forward implements ports.FrameForwarder.
func (h *HTTP) Forward(ctx context.Context, raw string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("forward returned %d", resp.StatusCode)
	}
	return nil
}
