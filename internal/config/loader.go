package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values. The access token in
// particular should come from the environment, not the config file.
const (
	EnvAPIURL      = "ITSL_API_URL"
	EnvAccessToken = "ITSL_ACCESS_TOKEN"
	EnvWSURL       = "ITSL_WS_URL"
	EnvLogLevel    = "ITSL_LOG_LEVEL"
)

// Load reads the YAML configuration file at path, applies environment
// overrides, and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies environment overrides
// and defaults, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.URL = v
	}
	if v := os.Getenv(EnvAccessToken); v != "" {
		cfg.API.AccessToken = v
	}
	if v := os.Getenv(EnvWSURL); v != "" {
		cfg.WebSocket.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = LogLevel(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Recording.AudioFormat == "" {
		cfg.Recording.AudioFormat = "audio/wave"
	}
	if cfg.Recording.SampleRate == 0 {
		cfg.Recording.SampleRate = 16000
	}
	if cfg.Recording.Channels == 0 {
		cfg.Recording.Channels = 1
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.API.URL == "" {
		errs = append(errs, errors.New("api.url is required"))
	} else if err := checkURL(cfg.API.URL, "http", "https"); err != nil {
		errs = append(errs, fmt.Errorf("api.url: %w", err))
	}
	if cfg.API.Timeout < 0 {
		errs = append(errs, fmt.Errorf("api.timeout %s must not be negative", cfg.API.Timeout))
	}

	if cfg.WebSocket.URL == "" {
		errs = append(errs, errors.New("websocket.url is required"))
	} else if err := checkURL(cfg.WebSocket.URL, "ws", "wss"); err != nil {
		errs = append(errs, fmt.Errorf("websocket.url: %w", err))
	}
	if cfg.WebSocket.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("websocket.dial_timeout %s must not be negative", cfg.WebSocket.DialTimeout))
	}

	if cfg.Recording.StepTimeout < 0 {
		errs = append(errs, fmt.Errorf("recording.step_timeout %s must not be negative", cfg.Recording.StepTimeout))
	}
	if cfg.Recording.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("recording.sample_rate %d must be positive", cfg.Recording.SampleRate))
	}
	if cfg.Recording.Channels < 1 || cfg.Recording.Channels > 2 {
		errs = append(errs, fmt.Errorf("recording.channels %d must be 1 or 2", cfg.Recording.Channels))
	}

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme %q is not one of %v", u.Scheme, schemes)
}
