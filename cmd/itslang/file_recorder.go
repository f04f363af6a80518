package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/itslanguage/itslanguage-go/internal/config"
	"github.com/itslanguage/itslanguage-go/pkg/recorder"
)

// recorder24kChunk is the slice size streamed per dataavailable event,
// roughly 750ms of 16kHz mono 16-bit audio.
const recorder24kChunk = 24 * 1024

// fileRecorder adapts a WAV file on disk to the recorder.Recorder interface.
// Stream plays the file content through dataavailable events and finishes
// with a recorded event. File access needs no user approval, so the media
// permission is always granted.
type fileRecorder struct {
	data  []byte
	chunk int
	specs recorder.AudioSpecs

	mu        sync.Mutex
	recording bool
	nextID    int
	listeners map[recorder.Event]map[int]recorder.Handler
}

func newFileRecorder(path string, chunk int, rc config.RecordingConfig) (*fileRecorder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio file %q is empty", path)
	}
	return &fileRecorder{
		data:  data,
		chunk: chunk,
		specs: recorder.AudioSpecs{
			Format: rc.AudioFormat,
			Parameters: map[string]any{
				"sampleRate": rc.SampleRate,
				"channels":   rc.Channels,
			},
		},
		listeners: make(map[recorder.Event]map[int]recorder.Handler),
	}, nil
}

func (r *fileRecorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *fileRecorder) HasUserMediaApproval() bool { return true }

func (r *fileRecorder) AudioSpecs() recorder.AudioSpecs { return r.specs }

func (r *fileRecorder) AddEventListener(ev recorder.Event, h recorder.Handler) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listeners[ev] == nil {
		r.listeners[ev] = make(map[int]recorder.Handler)
	}
	id := r.nextID
	r.nextID++
	r.listeners[ev][id] = h
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners[ev], id)
	}
}

// Stream emits the file as a sequence of dataavailable events followed by a
// recorded event. It stops early when ctx is cancelled.
func (r *fileRecorder) Stream(ctx context.Context) {
	r.mu.Lock()
	r.recording = true
	r.mu.Unlock()

	for off := 0; off < len(r.data); off += r.chunk {
		if ctx.Err() != nil {
			break
		}
		end := min(off+r.chunk, len(r.data))
		r.emit(recorder.EventDataAvailable, r.data[off:end])
	}

	r.mu.Lock()
	r.recording = false
	r.mu.Unlock()
	r.emit(recorder.EventRecorded, nil)
}

func (r *fileRecorder) emit(ev recorder.Event, data []byte) {
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
