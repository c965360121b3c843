package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LLMBRIDGE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("transport", os.Getenv("LLMBRIDGE_TRANSPORT"), &cfg.Transport)
	s.setString("device", os.Getenv("LLMBRIDGE_DEVICE"), &cfg.Device)
	s.setString("tcp-addr", os.Getenv("LLMBRIDGE_TCP_ADDR"), &cfg.TCPAddr)
	s.setString("backend-url", os.Getenv("LLMBRIDGE_BACKEND_URL"), &cfg.BackendURL)
	s.setString("model", os.Getenv("LLMBRIDGE_DEFAULT_MODEL"), &cfg.DefaultModel)
	s.setString("forward", os.Getenv("LLMBRIDGE_FORWARD"), &cfg.Forward)
	s.setString("forward-url", os.Getenv("LLMBRIDGE_FORWARD_URL"), &cfg.ForwardURL)
	s.setString("nats-url", os.Getenv("LLMBRIDGE_NATS_URL"), &cfg.NATSURL)
	s.setString("nats-subject", os.Getenv("LLMBRIDGE_NATS_SUBJECT"), &cfg.NATSSubject)
	s.setString("admin-addr", os.Getenv("LLMBRIDGE_ADMIN_ADDR"), &cfg.AdminAddr)
	s.setString("log-level", os.Getenv("LLMBRIDGE_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("baud", os.Getenv("LLMBRIDGE_BAUD"), &cfg.Baud); err != nil {
		return err
	}
	if err := s.setIntFromString("frame-capacity", os.Getenv("LLMBRIDGE_FRAME_CAPACITY"), &cfg.FrameCapacity); err != nil {
		return err
	}
	if err := s.setIntFromString("max-line-buffer", os.Getenv("LLMBRIDGE_MAX_LINE_BUFFER"), &cfg.MaxLineBuffer); err != nil {
		return err
	}
	if err := s.setIntFromString("retain-bytes", os.Getenv("LLMBRIDGE_RETAIN_BYTES"), &cfg.RetainBytes); err != nil {
		return err
	}

	if err := s.setDuration("timeout", os.Getenv("LLMBRIDGE_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("frame-timeout", os.Getenv("LLMBRIDGE_FRAME_TIMEOUT"), &cfg.FrameTimeout); err != nil {
		return err
	}
	if err := s.setDuration("parse-error-grace", os.Getenv("LLMBRIDGE_PARSE_ERROR_GRACE"), &cfg.ParseErrorGrace); err != nil {
		return err
	}
	if err := s.setDuration("poll", os.Getenv("LLMBRIDGE_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("idle-timeout", os.Getenv("LLMBRIDGE_IDLE_TIMEOUT"), &cfg.IdleTimeout); err != nil {
		return err
	}
	if err := s.setDuration("reset-delay", os.Getenv("LLMBRIDGE_RESET_DELAY"), &cfg.ResetDelay); err != nil {
		return err
	}

	s.setBoolFromString("watch", os.Getenv("LLMBRIDGE_WATCH"), &cfg.Watch)

	return nil
}
