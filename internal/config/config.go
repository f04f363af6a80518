// Package config provides the configuration schema, loader, and file watcher
// for the ITSLanguage SDK tooling.
package config

import (
	"log/slog"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to the corresponding slog level. Unrecognised or empty values
// map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Recording RecordingConfig `yaml:"recording"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// APIConfig holds settings for the REST API client.
type APIConfig struct {
	// URL is the API root (e.g. "https://api.itslanguage.nl").
	URL string `yaml:"url"`

	// AccessToken authenticates every request and signs audio URLs.
	// Usually supplied via the ITSL_ACCESS_TOKEN environment variable
	// rather than the config file.
	AccessToken string `yaml:"access_token"`

	// Timeout bounds each REST request. Zero uses the client default.
	Timeout time.Duration `yaml:"timeout"`
}

// WebSocketConfig holds settings for the streaming RPC connection.
type WebSocketConfig struct {
	// URL is the websocket endpoint (e.g. "wss://ws.itslanguage.nl").
	URL string `yaml:"url"`

	// DialTimeout bounds the connection handshake. Zero uses the default.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// PingInterval sets the keepalive cadence. Negative disables pings;
	// zero uses the default.
	PingInterval time.Duration `yaml:"ping_interval"`
}

// RecordingConfig holds defaults for recording and recognition sessions.
type RecordingConfig struct {
	// OrganisationID scopes challenges when none is given on the command
	// line.
	OrganisationID string `yaml:"organisation_id"`

	// StepTimeout bounds each handshake step and the media-permission
	// wait. Zero means no per-step timeout.
	StepTimeout time.Duration `yaml:"step_timeout"`

	// AudioFormat is the MIME type announced for recorded audio.
	AudioFormat string `yaml:"audio_format"`

	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the capture channel count.
	Channels int `yaml:"channels"`
}
