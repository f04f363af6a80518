package session

import "testing"

func TestValidTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateInitializing, true},
		{StateIdle, StateSettled, true},
		{StateInitializing, StateAwaitingPermission, true},
		{StateInitializing, StateStreaming, true},
		{StateInitializing, StateSettled, true},
		{StateAwaitingPermission, StateStreaming, true},
		{StateAwaitingPermission, StateSettled, true},
		{StateStreaming, StateClosing, true},
		{StateStreaming, StateSettled, true},
		{StateClosing, StateSettled, true},

		// Settled is terminal.
		{StateSettled, StateIdle, false},
		{StateSettled, StateInitializing, false},
		{StateSettled, StateSettled, false},

		// No skipping ahead or moving backwards.
		{StateIdle, StateStreaming, false},
		{StateIdle, StateClosing, false},
		{StateStreaming, StateInitializing, false},
		{StateClosing, StateStreaming, false},
	}

	for _, tt := range tests {
		if got := validTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("validTransition(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	want := map[State]string{
		StateIdle:               "idle",
		StateInitializing:       "initializing",
		StateAwaitingPermission: "awaiting_permission",
		StateStreaming:          "streaming",
		StateClosing:            "closing",
		StateSettled:            "settled",
		State(99):               "unknown",
	}
	for s, name := range want {
		if got := s.String(); got != name {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, name)
		}
	}
}

func TestRegistry_AcquireBindRelease(t *testing.T) {
	t.Parallel()

	var r registry

	l, err := r.acquire()
	if err != nil {
		t.Fatalf("acquire() error: %v", err)
	}

	// A second acquire fails, citing no id yet.
	if _, err := r.acquire(); err == nil {
		t.Fatal("second acquire() should fail while the slot is held")
	}

	l.bind("rec-9")
	if _, err := r.acquire(); err == nil {
		t.Fatal("acquire() should fail after bind")
	} else if inProgress, ok := err.(*InProgressError); !ok || inProgress.SessionID != "rec-9" {
		t.Errorf("acquire() error = %v, want InProgressError citing rec-9", err)
	}

	l.release()
	l.release() // releasing twice is a no-op

	if _, err := r.acquire(); err != nil {
		t.Fatalf("acquire() after release error: %v", err)
	}
}
