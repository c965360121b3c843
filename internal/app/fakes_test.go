package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/llmbridge/internal/domain"
)

// fakeBackend answers from canned data and records calls.
type fakeBackend struct {
	mu        sync.Mutex
	models    map[string]domain.ModelStatus
	body      string
	reader    io.Reader
	genErr    error
	checks    []string
	generates []generateCall
}

type generateCall struct {
	model  string
	prompt string
}

func (f *fakeBackend) Probe(ctx context.Context) (int, error) {
	return 200, nil
}

func (f *fakeBackend) CheckModel(ctx context.Context, name string) domain.ModelStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks = append(f.checks, name)
	status, ok := f.models[name]
	if !ok {
		return domain.ModelNotFound
	}
	return status
}

func (f *fakeBackend) Generate(ctx context.Context, model, prompt string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generates = append(f.generates, generateCall{model, prompt})
	if f.genErr != nil {
		return nil, f.genErr
	}
	if f.reader != nil {
		return io.NopCloser(f.reader), nil
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func (f *fakeBackend) checkCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checks)
}

// envelopeRecorder collects written envelopes.
type envelopeRecorder struct {
	mu   sync.Mutex
	envs []domain.ResponseEnvelope
	err  error
}

func (r *envelopeRecorder) WriteEnvelope(env domain.ResponseEnvelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.envs = append(r.envs, env)
	return nil
}

func (r *envelopeRecorder) all() []domain.ResponseEnvelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ResponseEnvelope(nil), r.envs...)
}

type fakeForwarder struct {
	mu  sync.Mutex
	raw []string
	err error
}

func (f *fakeForwarder) Forward(ctx context.Context, raw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append(f.raw, raw)
	return f.err
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func mustFrame(text string) domain.Frame {
	f, err := domain.ParseFrame(text)
	if err != nil {
		panic(err)
	}
	return f
}

var errBoom = errors.New("boom")
