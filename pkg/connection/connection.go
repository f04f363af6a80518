// Package connection provides the persistent RPC channel to the ITSLanguage
// streaming backend.
//
// The central abstraction is [Channel]: a bidirectional connection exposing a
// single Call primitive with positional and named arguments. The production
// implementation, [Conn], speaks a JSON request/response protocol over a
// WebSocket and correlates in-flight calls by client-generated ids, so
// multiple calls may be outstanding at once.
//
// Server-side rejections arrive as structured payloads carrying at least an
// error code and optional named values; these surface as [*RPCError] so
// callers can classify failures without string matching.
package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Channel is the RPC primitive consumed by the session engine. It is an
// interface so that tests can substitute a scripted channel.
//
// Implementations must be safe for concurrent use.
type Channel interface {
	// Call invokes the named remote procedure with positional args and named
	// kwargs, and blocks until the server responds or ctx is done. On a
	// server-side rejection the returned error is an *RPCError.
	Call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (json.RawMessage, error)

	// Connected reports whether the channel is currently open.
	Connected() bool
}

// RPCError is a structured server-side rejection of an RPC call.
type RPCError struct {
	// Procedure is the remote procedure whose call was rejected.
	Procedure string

	// Code is the server's error identifier (the "error" field of the
	// rejection payload), e.g. "recognition_failed".
	Code string

	// Message is an optional human-readable message supplied by the server.
	Message string

	// Kwargs carries any named values attached to the rejection, such as a
	// partial analysis payload. Values are raw JSON so callers decode only
	// what they understand.
	Kwargs map[string]json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("connection: %s rejected with %s: %s", e.Procedure, e.Code, e.Message)
	}
	return fmt.Sprintf("connection: %s rejected with %s", e.Procedure, e.Code)
}

// Config describes how to reach the streaming backend.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "wss://ws.itslanguage.nl".
	URL string

	// AccessToken, when non-empty, is sent as a Bearer token on the
	// WebSocket handshake.
	AccessToken string

	// DialTimeout bounds the WebSocket handshake. Zero means 10s.
	DialTimeout time.Duration

	// PingInterval is how often the connection is pinged to keep
	// intermediaries from dropping it. Zero means 30s; negative disables
	// pings.
	PingInterval time.Duration
}

// Validate reports whether the config is usable.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("connection: config: URL must not be empty")
	}
	return nil
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return 10 * time.Second
	}
	return c.DialTimeout
}

func (c Config) pingInterval() time.Duration {
	if c.PingInterval == 0 {
		return 30 * time.Second
	}
	return c.PingInterval
}
