package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/llmbridge/internal/domain"
)

// Transport kinds.
const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"
	TransportStdio  = "stdio"
)

// Forward sinks.
const (
	ForwardNone = "none"
	ForwardLog  = "log"
	ForwardHTTP = "http"
	ForwardNATS = "nats"
)

// DefaultBackendURL is the default Ollama endpoint.
const DefaultBackendURL = "http://localhost:11434"

// Config holds CLI configuration for llmbridge.
type Config struct {
	Transport string
	Device    string
	Baud      int
	TCPAddr   string

	BackendURL   string
	HTTPTimeout  time.Duration
	DefaultModel string

	FrameCapacity   int
	FrameTimeout    time.Duration
	ParseErrorGrace time.Duration
	PollInterval    time.Duration

	MaxLineBuffer int
	RetainBytes   int
	IdleTimeout   time.Duration
	ResetDelay    time.Duration

	Forward     string
	ForwardURL  string
	NATSURL     string
	NATSSubject string

	AdminAddr string
	LogLevel  string
	Watch     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Transport:       TransportSerial,
		Device:          "/dev/ttyUSB0",
		Baud:            115200,
		BackendURL:      DefaultBackendURL,
		HTTPTimeout:     15 * time.Second,
		FrameCapacity:   2048,
		FrameTimeout:    time.Second,
		ParseErrorGrace: 50 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
		MaxLineBuffer:   4096,
		RetainBytes:     2048,
		IdleTimeout:     30 * time.Second,
		ResetDelay:      100 * time.Millisecond,
		Forward:         ForwardLog,
		NATSSubject:     "llmbridge.frames",
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors and normalizes it.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSerial:
		if c.Device == "" {
			return invalid("device is required for serial transport")
		}
		if c.Baud <= 0 {
			return invalid("baud must be positive")
		}
	case TransportTCP:
		if c.TCPAddr == "" {
			return invalid("tcp-addr is required for tcp transport")
		}
	case TransportStdio:
	default:
		return invalid("unknown transport %q", c.Transport)
	}

	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	if c.BackendURL == "" {
		return invalid("backend-url is required")
	}

	positive := []struct {
		name string
		ok   bool
	}{
		{"timeout", c.HTTPTimeout > 0},
		{"frame-capacity", c.FrameCapacity > 1},
		{"frame-timeout", c.FrameTimeout > 0},
		{"parse-error-grace", c.ParseErrorGrace > 0},
		{"poll", c.PollInterval > 0},
		{"max-line-buffer", c.MaxLineBuffer > 0},
		{"retain-bytes", c.RetainBytes > 0},
		{"idle-timeout", c.IdleTimeout > 0},
		{"reset-delay", c.ResetDelay >= 0},
	}
	for _, p := range positive {
		if !p.ok {
			return invalid("%s must be positive", p.name)
		}
	}
	if c.RetainBytes >= c.MaxLineBuffer {
		return invalid("retain-bytes (%d) must be smaller than max-line-buffer (%d)", c.RetainBytes, c.MaxLineBuffer)
	}

	switch c.Forward {
	case "", ForwardNone:
		c.Forward = ForwardNone
	case ForwardLog:
	case ForwardHTTP:
		if c.ForwardURL == "" {
			return invalid("forward-url is required for http forwarding")
		}
	case ForwardNATS:
		if c.NATSURL == "" {
			return invalid("nats-url is required for nats forwarding")
		}
	default:
		return invalid("unknown forward sink %q", c.Forward)
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
