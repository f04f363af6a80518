// Package recorder defines the capability contract for audio recorders used
// by the streaming session engine.
//
// A [Recorder] is supplied by the embedding application — the SDK never owns
// a microphone. The engine only needs to know whether recording is in
// progress, whether the user has granted media access, which audio format
// the recorder produces, and it needs to observe three lifecycle events:
//
//   - [EventReady] — the user granted media access and the recorder can start.
//   - [EventDataAvailable] — a chunk of recorded audio is available.
//   - [EventRecorded] — recording stopped (user action or forced stop).
//
// Implementations must be safe for concurrent use: events may fire from
// internal goroutines while the engine inspects recorder state.
package recorder

// Event identifies a recorder lifecycle event.
type Event string

const (
	// EventReady fires once the user has granted media access.
	EventReady Event = "ready"

	// EventDataAvailable fires for each recorded audio chunk. The handler
	// receives the chunk bytes; the buffer must not be retained or mutated
	// after the handler returns.
	EventDataAvailable Event = "dataavailable"

	// EventRecorded fires when recording has stopped.
	EventRecorded Event = "recorded"
)

// Handler is invoked when a subscribed event fires. data is non-nil only
// for [EventDataAvailable]; for other events it is nil.
type Handler func(data []byte)

// AudioSpecs describes the audio a recorder produces. Format is the
// container/codec name sent to the server (for example "audio/wave");
// Parameters carries format-specific settings such as sample rate and
// channel count, passed to the server as named arguments.
type AudioSpecs struct {
	Format     string
	Parameters map[string]any
}

// Recorder is the capability object the session engine drives. It mirrors
// an event-emitting media recorder: state probes plus event subscription.
//
// AddEventListener returns a remove function that unsubscribes the handler;
// calling it more than once is a no-op. Handlers may be invoked from any
// goroutine and must not block.
type Recorder interface {
	// IsRecording reports whether a recording is currently in progress.
	IsRecording() bool

	// HasUserMediaApproval reports whether the user has already granted
	// media access. When false, an EventReady event will fire once access
	// is granted.
	HasUserMediaApproval() bool

	// AudioSpecs returns the audio format and named parameters of the
	// audio this recorder produces.
	AudioSpecs() AudioSpecs

	// AddEventListener subscribes h to ev and returns a function that
	// removes the subscription.
	AddEventListener(ev Event, h Handler) (remove func())
}
