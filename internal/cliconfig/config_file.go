package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Transport       string `toml:"transport"`
	Device          string `toml:"device"`
	Baud            int    `toml:"baud"`
	TCPAddr         string `toml:"tcp_addr"`
	BackendURL      string `toml:"backend_url"`
	HTTPTimeout     string `toml:"http_timeout"`
	DefaultModel    string `toml:"default_model"`
	FrameCapacity   int    `toml:"frame_capacity"`
	FrameTimeout    string `toml:"frame_timeout"`
	ParseErrorGrace string `toml:"parse_error_grace"`
	PollInterval    string `toml:"poll_interval"`
	MaxLineBuffer   int    `toml:"max_line_buffer"`
	RetainBytes     int    `toml:"retain_bytes"`
	IdleTimeout     string `toml:"idle_timeout"`
	ResetDelay      string `toml:"reset_delay"`
	Forward         string `toml:"forward"`
	ForwardURL      string `toml:"forward_url"`
	NATSURL         string `toml:"nats_url"`
	NATSSubject     string `toml:"nats_subject"`
	AdminAddr       string `toml:"admin_addr"`
	LogLevel        string `toml:"log_level"`
	Watch           *bool  `toml:"watch"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.llmbridge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".llmbridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("device", fc.Device, &cfg.Device)
	s.setString("tcp-addr", fc.TCPAddr, &cfg.TCPAddr)
	s.setString("backend-url", fc.BackendURL, &cfg.BackendURL)
	s.setString("model", fc.DefaultModel, &cfg.DefaultModel)
	s.setString("forward", fc.Forward, &cfg.Forward)
	s.setString("forward-url", fc.ForwardURL, &cfg.ForwardURL)
	s.setString("nats-url", fc.NATSURL, &cfg.NATSURL)
	s.setString("nats-subject", fc.NATSSubject, &cfg.NATSSubject)
	s.setString("admin-addr", fc.AdminAddr, &cfg.AdminAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("frame-capacity", fc.FrameCapacity, &cfg.FrameCapacity)
	s.setInt("max-line-buffer", fc.MaxLineBuffer, &cfg.MaxLineBuffer)
	s.setInt("retain-bytes", fc.RetainBytes, &cfg.RetainBytes)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"frame-timeout", fc.FrameTimeout, &cfg.FrameTimeout},
		{"parse-error-grace", fc.ParseErrorGrace, &cfg.ParseErrorGrace},
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"idle-timeout", fc.IdleTimeout, &cfg.IdleTimeout},
		{"reset-delay", fc.ResetDelay, &cfg.ResetDelay},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
