package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/llmbridge/internal/adapters/transport"
	"github.com/bft-labs/llmbridge/internal/cliconfig"
	"github.com/bft-labs/llmbridge/pkg/bridge"
	logAdapter "github.com/bft-labs/llmbridge/pkg/log"
)

const helpDescription = `
Bridge a microcontroller's serial link to a local Ollama server.

The device writes JSON request frames; the bridge answers pings and resets,
selects models and streams generated text back as newline-terminated
envelopes while the model is still producing it.

Configuration is read from $HOME/.llmbridge/config.toml, then LLMBRIDGE_*
environment variables, then flags.
`

var exampleUsage = strings.TrimSpace(`
  llmbridge --device /dev/ttyACM0 --model llama3
  llmbridge --transport tcp --tcp-addr 192.168.4.1:7000 --admin-addr :9101
  llmbridge --config $HOME/.llmbridge/config.toml --watch
  llmbridge ports
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "llmbridge",
		Short:   "Bridge a serial device to a local LLM",
		Long:    strings.TrimSpace(helpDescription),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// LLMBRIDGE_* override the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cliconfig.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			b, err := bridge.New(cfg, bridge.WithLogger(logAdapter.NewZerologAdapterWithLogger(log)))
			if err != nil {
				return fmt.Errorf("create bridge: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := b.Start(ctx); err != nil {
				return fmt.Errorf("start bridge: %w", err)
			}

			if cfg.Watch && cliconfig.FileExists(cfgFile) {
				w := cliconfig.NewWatcher(cfgFile, logAdapter.NewZerologAdapterWithLogger(log), func(fc cliconfig.FileConfig) {
					b.Apply(bridge.Update{DefaultModel: fc.DefaultModel, LogLevel: fc.LogLevel})
				})
				go func() {
					if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Warn().Err(err).Msg("config watcher stopped")
					}
				}()
			}

			runErr := make(chan error, 1)
			go func() { runErr <- b.Wait() }()

			select {
			case <-ctx.Done():
				log.Info().Msg("received signal, stopping...")
			case err := <-runErr:
				if err != nil {
					log.Error().Err(err).Msg("bridge failed")
				}
			}

			if err := b.Stop(); err != nil && !errors.Is(err, bridge.ErrNotRunning) {
				return fmt.Errorf("stop bridge: %w", err)
			}
			return nil
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := transport.Ports()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.llmbridge/config.toml)")

	f.StringVar(&cfg.Transport, "transport", cfg.Transport, "device link: serial, tcp or stdio")
	f.StringVar(&cfg.Device, "device", cfg.Device, "serial device path")
	f.IntVar(&cfg.Baud, "baud", cfg.Baud, "serial baud rate")
	f.StringVar(&cfg.TCPAddr, "tcp-addr", cfg.TCPAddr, "host:port of a serial-over-TCP device")

	f.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "Ollama base URL")
	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "backend response-header timeout")
	f.StringVar(&cfg.DefaultModel, "model", cfg.DefaultModel, "model used when the device has not run setup")

	f.IntVar(&cfg.FrameCapacity, "frame-capacity", cfg.FrameCapacity, "frame buffer capacity in bytes")
	f.DurationVar(&cfg.FrameTimeout, "frame-timeout", cfg.FrameTimeout, "discard a partial frame after this long")
	f.DurationVar(&cfg.ParseErrorGrace, "parse-error-grace", cfg.ParseErrorGrace, "keep a balanced but invalid frame this long before discarding")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "bridge loop poll interval")

	f.IntVar(&cfg.MaxLineBuffer, "max-line-buffer", cfg.MaxLineBuffer, "longest backend NDJSON line kept in bytes")
	f.IntVar(&cfg.RetainBytes, "retain-bytes", cfg.RetainBytes, "bytes kept when an NDJSON line overflows")
	f.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "abort a generation after this long without backend data")
	f.DurationVar(&cfg.ResetDelay, "reset-delay", cfg.ResetDelay, "pause between reset ack and reset completion")

	f.StringVar(&cfg.Forward, "forward", cfg.Forward, "setup frame sink: none, log, http or nats")
	f.StringVar(&cfg.ForwardURL, "forward-url", cfg.ForwardURL, "URL receiving setup frames (http sink)")
	f.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server URL (nats sink)")
	f.StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS subject (nats sink)")

	f.StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "listen address for /metrics, /healthz and /inject (disabled when empty)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload model and log level when the config file changes")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("llmbridge")
		os.Exit(1)
	}
}
