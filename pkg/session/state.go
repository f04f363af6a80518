package session

// State identifies where a streaming session is in its lifecycle. The engine
// drives every session through the same linear progression:
//
//	Idle → Initializing → (AwaitingPermission) → Streaming → Closing → Settled
//
// AwaitingPermission is skipped when the recorder already has user media
// approval. Settled is terminal; no transition leaves it. Precondition
// failures jump straight from Idle to Settled without touching the wire.
type State int

const (
	// StateIdle is the state before any work has started.
	StateIdle State = iota

	// StateInitializing covers the init_recording and init_challenge calls.
	StateInitializing

	// StateAwaitingPermission means the engine is suspended until the
	// recorder reports user media approval.
	StateAwaitingPermission

	// StateStreaming means audio chunks are being forwarded to the server.
	StateStreaming

	// StateClosing means the terminal RPC call is in flight.
	StateClosing

	// StateSettled is the terminal state: the session resolved or rejected.
	StateSettled
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// validTransition reports whether a session may move from one state to the
// next. Every non-terminal state may settle; Settled allows nothing.
func validTransition(from, to State) bool {
	if from == StateSettled {
		return false
	}
	if to == StateSettled {
		return true
	}
	switch from {
	case StateIdle:
		return to == StateInitializing
	case StateInitializing:
		return to == StateAwaitingPermission || to == StateStreaming
	case StateAwaitingPermission:
		return to == StateStreaming
	case StateStreaming:
		return to == StateClosing
	default:
		return false
	}
}
