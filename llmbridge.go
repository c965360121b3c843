// Package llmbridge connects a serial device to a local Ollama server.
//
// Example usage:
//
//	cfg := llmbridge.DefaultConfig()
//	cfg.Device = "/dev/ttyACM0"
//	cfg.DefaultModel = "llama3"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := llmbridge.Run(context.Background(), cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is the blocking form. Programs that need Start and Stop control use
// package pkg/bridge.
package llmbridge

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bft-labs/llmbridge/internal/cliconfig"
	"github.com/bft-labs/llmbridge/pkg/bridge"
	logAdapter "github.com/bft-labs/llmbridge/pkg/log"
)

// Config holds the bridge configuration.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = bridge.Config

// Run bridges the configured device until ctx is cancelled or the loop
// fails. It logs through Logger().
func Run(ctx context.Context, cfg Config) error {
	b, err := bridge.New(cfg, bridge.WithLogger(logAdapter.NewZerologAdapterWithLogger(Logger())))
	if err != nil {
		return err
	}
	if err := b.Start(ctx); err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- b.Wait() }()

	select {
	case <-ctx.Done():
	case err = <-runErr:
	}
	if stopErr := b.Stop(); stopErr != nil && !errors.Is(stopErr, bridge.ErrNotRunning) && err == nil {
		err = stopErr
	}
	return err
}

// DefaultConfig returns a Config with sensible default values.
// Serial users usually set Device and DefaultModel before calling Run.
func DefaultConfig() Config {
	return bridge.DefaultConfig()
}

// Logger returns the package-level zerolog logger used by Run.
func Logger() zerolog.Logger {
	return cliconfig.Logger()
}

// DefaultBackendURL is the default Ollama endpoint.
const DefaultBackendURL = cliconfig.DefaultBackendURL
