// Package mock provides a scripted test double for the recorder package.
//
// Tests configure the initial state (Approved, Recording, Specs), run the
// code under test, and drive events with EmitReady, EmitData and
// EmitRecorded. Handlers run synchronously on the emitting goroutine, so
// event ordering in tests is deterministic.
package mock

import (
	"sync"

	"github.com/itslanguage/itslanguage-go/pkg/recorder"
)

// Recorder is a mock implementation of recorder.Recorder.
// The zero value is a non-recording recorder without media approval.
type Recorder struct {
	mu sync.Mutex

	// Recording is returned by IsRecording.
	Recording bool

	// Approved is returned by HasUserMediaApproval.
	Approved bool

	// Specs is returned by AudioSpecs. If zero, a sensible WAV default
	// is returned instead.
	Specs recorder.AudioSpecs

	nextID    int
	listeners map[recorder.Event]map[int]recorder.Handler
}

// IsRecording returns the Recording field.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Recording
}

// HasUserMediaApproval returns the Approved field.
func (r *Recorder) HasUserMediaApproval() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Approved
}

// AudioSpecs returns Specs, or a WAV default when Specs is the zero value.
func (r *Recorder) AudioSpecs() recorder.AudioSpecs {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Specs.Format == "" {
		return recorder.AudioSpecs{
			Format:     "audio/wave",
			Parameters: map[string]any{"sampleRate": 16000, "channels": 1},
		}
	}
	return r.Specs
}

// AddEventListener registers h for ev and returns its remove function.
func (r *Recorder) AddEventListener(ev recorder.Event, h recorder.Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners == nil {
		r.listeners = make(map[recorder.Event]map[int]recorder.Handler)
	}
	if r.listeners[ev] == nil {
		r.listeners[ev] = make(map[int]recorder.Handler)
	}
	id := r.nextID
	r.nextID++
	r.listeners[ev][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.listeners[ev], id)
		})
	}
}

// ListenerCount reports how many handlers are subscribed to ev.
func (r *Recorder) ListenerCount(ev recorder.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[ev])
}

// SetApproved updates the value returned by HasUserMediaApproval.
func (r *Recorder) SetApproved(approved bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Approved = approved
}

// EmitReady marks the recorder approved and fires EventReady.
func (r *Recorder) EmitReady() {
	r.SetApproved(true)
	r.emit(recorder.EventReady, nil)
}

// EmitData fires EventDataAvailable with the given chunk.
func (r *Recorder) EmitData(chunk []byte) {
	r.emit(recorder.EventDataAvailable, chunk)
}

// EmitRecorded marks the recorder stopped and fires EventRecorded.
func (r *Recorder) EmitRecorded() {
	r.mu.Lock()
	r.Recording = false
	r.mu.Unlock()
	r.emit(recorder.EventRecorded, nil)
}

func (r *Recorder) emit(ev recorder.Event, data []byte) {
	r.mu.Lock()
	handlers := make([]recorder.Handler, 0, len(r.listeners[ev]))
	for _, h := range r.listeners[ev] {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()
	for _, h := range handlers {
		h(data)
	}
}

// Ensure Recorder implements recorder.Recorder at compile time.
var _ recorder.Recorder = (*Recorder)(nil)
