package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/itslanguage/itslanguage-go/internal/config"
	"github.com/itslanguage/itslanguage-go/pkg/recorder"
)

func writeAudioFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write audio file: %v", err)
	}
	return path
}

func TestFileRecorder_StreamsChunksThenRecorded(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0xAB}, 10)
	path := writeAudioFile(t, payload)

	rec, err := newFileRecorder(path, 4, config.RecordingConfig{
		AudioFormat: "audio/wave",
		SampleRate:  16000,
		Channels:    1,
	})
	if err != nil {
		t.Fatalf("newFileRecorder: %v", err)
	}

	var got []byte
	var chunks, recorded int
	rec.AddEventListener(recorder.EventDataAvailable, func(data []byte) {
		chunks++
		got = append(got, data...)
	})
	rec.AddEventListener(recorder.EventRecorded, func([]byte) {
		recorded++
		if rec.IsRecording() {
			t.Error("IsRecording still true at the recorded event")
		}
	})

	rec.Stream(context.Background())

	if chunks != 3 {
		t.Errorf("got %d chunks, want 3", chunks)
	}
	if recorded != 1 {
		t.Errorf("got %d recorded events, want 1", recorded)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("streamed bytes do not match the file content")
	}
}

func TestFileRecorder_StreamStopsOnCancel(t *testing.T) {
	t.Parallel()

	path := writeAudioFile(t, bytes.Repeat([]byte{1}, 100))
	rec, err := newFileRecorder(path, 10, config.RecordingConfig{AudioFormat: "audio/wave", SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("newFileRecorder: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var chunks int
	rec.AddEventListener(recorder.EventDataAvailable, func([]byte) { chunks++ })
	rec.Stream(ctx)

	if chunks != 0 {
		t.Errorf("got %d chunks after cancellation, want 0", chunks)
	}
}

func TestFileRecorder_RejectsEmptyFile(t *testing.T) {
	t.Parallel()

	path := writeAudioFile(t, nil)
	if _, err := newFileRecorder(path, 4, config.RecordingConfig{}); err == nil {
		t.Fatal("expected an error for an empty audio file")
	}
}

func TestFileRecorder_AlwaysHasMediaApproval(t *testing.T) {
	t.Parallel()

	path := writeAudioFile(t, []byte{1, 2, 3})
	rec, err := newFileRecorder(path, 4, config.RecordingConfig{AudioFormat: "audio/wave", SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("newFileRecorder: %v", err)
	}
	if !rec.HasUserMediaApproval() {
		t.Error("file access needs no user approval")
	}
	if got := rec.AudioSpecs().Format; got != "audio/wave" {
		t.Errorf("AudioSpecs().Format = %q, want audio/wave", got)
	}
}
