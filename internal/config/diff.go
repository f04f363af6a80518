package config

// Diff describes what changed between two configs. Only fields that can be
// safely applied without restarting are tracked; endpoint changes require a
// reconnect and are reported so callers can log them.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	AccessTokenChanged bool
	StepTimeoutChanged bool
	EndpointsChanged   bool
}

// Compare returns what changed between old and new.
func Compare(old, new *Config) Diff {
	d := Diff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}
	if old.API.AccessToken != new.API.AccessToken {
		d.AccessTokenChanged = true
	}
	if old.Recording.StepTimeout != new.Recording.StepTimeout {
		d.StepTimeoutChanged = true
	}
	if old.API.URL != new.API.URL || old.WebSocket.URL != new.WebSocket.URL {
		d.EndpointsChanged = true
	}

	return d
}

// Empty reports whether no tracked field changed.
func (d Diff) Empty() bool {
	return d == Diff{}
}
