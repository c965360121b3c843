package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bft-labs/llmbridge/pkg/log"
)

const (
	versionEndpoint  = "/api/version"
	tagsEndpoint     = "/api/tags"
	generateEndpoint = "/api/generate"

	maxErrorBody = 512
)

// ErrModelNotFound is returned by HasModel when the backend answered but
// does not list the model.
var ErrModelNotFound = errors.New("ollama: model not found")

// StatusError is returned for non-200 responses.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to one backend base URL.
type Client struct {
	baseURL string
	client  HTTPClient
	logger  log.Logger
}

// NewClient creates a client. A trailing slash on baseURL is ignored.
func NewClient(baseURL string, client HTTPClient, logger log.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Version probes the backend and returns the HTTP status code. A transport
// failure returns 0 and the error.
func (c *Client) Version(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+versionEndpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var v VersionResponse
		if err := json.NewDecoder(resp.Body).Decode(&v); err == nil && v.Version != "" {
			c.logger.Debug("backend version", log.String("version", v.Version))
		}
	}
	return resp.StatusCode, nil
}

// Tags lists the installed models.
func (c *Client) Tags(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(tagsEndpoint, resp)
	}

	var tags TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags.Models, nil
}

// HasModel returns nil when the backend lists name, ErrModelNotFound when
// it does not, and any other error when the listing could not be fetched.
func (c *Client) HasModel(ctx context.Context, name string) error {
	models, err := c.Tags(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m.Matches(name) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// Generate starts a streaming generation and returns the response body.
// The caller must close it.
func (c *Client) Generate(ctx context.Context, model, prompt string) (io.ReadCloser, error) {
	payload, err := json.Marshal(GenerateRequest{Model: model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generateEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(generateEndpoint, resp)
	}
	return resp.Body, nil
}

func statusError(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
