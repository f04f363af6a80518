package config

import (
	"testing"
	"time"
)

func baseConfig() *Config {
	return &Config{
		API:       APIConfig{URL: "https://api.itslanguage.nl", AccessToken: "tok"},
		WebSocket: WebSocketConfig{URL: "wss://ws.itslanguage.nl"},
		Recording: RecordingConfig{StepTimeout: 30 * time.Second},
		LogLevel:  LogInfo,
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   Diff
	}{
		{
			name:   "no changes",
			mutate: func(*Config) {},
			want:   Diff{},
		},
		{
			name:   "log level",
			mutate: func(c *Config) { c.LogLevel = LogDebug },
			want:   Diff{LogLevelChanged: true, NewLogLevel: LogDebug},
		},
		{
			name:   "access token",
			mutate: func(c *Config) { c.API.AccessToken = "rotated" },
			want:   Diff{AccessTokenChanged: true},
		},
		{
			name:   "step timeout",
			mutate: func(c *Config) { c.Recording.StepTimeout = time.Minute },
			want:   Diff{StepTimeoutChanged: true},
		},
		{
			name:   "api endpoint",
			mutate: func(c *Config) { c.API.URL = "https://staging.itslanguage.nl" },
			want:   Diff{EndpointsChanged: true},
		},
		{
			name:   "websocket endpoint",
			mutate: func(c *Config) { c.WebSocket.URL = "wss://staging-ws.itslanguage.nl" },
			want:   Diff{EndpointsChanged: true},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			old := baseConfig()
			updated := baseConfig()
			tt.mutate(updated)

			got := Compare(old, updated)
			if got != tt.want {
				t.Errorf("Compare = %+v, want %+v", got, tt.want)
			}
			if got.Empty() != (tt.want == Diff{}) {
				t.Errorf("Empty() = %v", got.Empty())
			}
		})
	}
}
