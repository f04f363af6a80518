package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/itslanguage/itslanguage-go/internal/observe"
	"github.com/itslanguage/itslanguage-go/pkg/recorder"
)

// chunkBacklog bounds how many recorded chunks may queue while earlier
// writes are still in flight. Writes are serialized per session, so bursts
// from the recorder buffer here.
const chunkBacklog = 64

// flow executes the protocol for a single session attempt. It is used by
// exactly one goroutine plus the recorder's event goroutines, which only
// touch the channels it hands them.
type flow struct {
	engine    *Engine
	kind      kind
	challenge *Challenge
	rec       recorder.Recorder
	opts      options
	lease     *lease

	state     State
	sessionID string
}

// transition is the single state-change point of the flow. Illegal
// transitions indicate a driver bug; they are logged and ignored rather than
// corrupting the lifecycle.
func (f *flow) transition(to State) {
	if !validTransition(f.state, to) {
		slog.Error("illegal session state transition",
			"from", f.state, "to", to, "session_id", f.sessionID)
		return
	}
	slog.Debug("session state change",
		"from", f.state, "to", to, "session_id", f.sessionID, "kind", f.kind.String())
	f.state = to
}

// run drives the session to a single settled outcome.
func (f *flow) run(ctx context.Context) (_ *RecognitionResult, err error) {
	defer f.transition(StateSettled)

	// The recorded handler is attached before any RPC call so a recording
	// that finishes during the handshake is not missed. The ready handler is
	// attached before the approval probe for the same reason.
	recorded := make(chan struct{}, 1)
	removeRecorded := f.rec.AddEventListener(recorder.EventRecorded, func([]byte) {
		select {
		case recorded <- struct{}{}:
		default:
		}
	})
	defer removeRecorded()

	ready := make(chan struct{}, 1)
	removeReady := f.rec.AddEventListener(recorder.EventReady, func([]byte) {
		select {
		case ready <- struct{}{}:
		default:
		}
	})
	defer removeReady()

	f.transition(StateInitializing)

	raw, err := f.call(ctx, "init_recording", nil, nil)
	if err != nil {
		return nil, err
	}
	var sessionID string
	if err := json.Unmarshal(raw, &sessionID); err != nil || sessionID == "" {
		return nil, fmt.Errorf("session: init_recording returned a malformed session id: %s", raw)
	}
	f.sessionID = sessionID
	f.lease.bind(sessionID)
	observe.Logger(ctx).Debug("session initialised", "session_id", sessionID, "kind", f.kind.String())

	if _, err := f.call(ctx, "init_challenge",
		[]any{sessionID, f.challenge.OrganisationID, f.challenge.ID}, nil); err != nil {
		return nil, err
	}

	if !f.rec.HasUserMediaApproval() {
		f.transition(StateAwaitingPermission)
		if err := f.waitReady(ctx, ready); err != nil {
			return nil, err
		}
	}

	specs := f.rec.AudioSpecs()
	if _, err := f.call(ctx, "init_audio", []any{sessionID, specs.Format}, specs.Parameters); err != nil {
		return nil, err
	}

	f.transition(StateStreaming)

	// Chunk forwarding: dataavailable events feed a buffered channel drained
	// by a single pump goroutine, so writes reach the server in recording
	// order. A failed write cancels the whole session.
	pumpCtx, cancelPump := context.WithCancel(ctx)
	defer cancelPump()
	g, gctx := errgroup.WithContext(pumpCtx)

	chunks := make(chan []byte, chunkBacklog)
	removeData := f.rec.AddEventListener(recorder.EventDataAvailable, func(data []byte) {
		buf := make([]byte, len(data))
		copy(buf, data)
		select {
		case chunks <- buf:
		case <-gctx.Done():
		}
	})
	defer removeData()

	stop := make(chan struct{})
	g.Go(func() error {
		return f.pumpChunks(gctx, chunks, stop)
	})

	// Intermediate "ready to receive" notification, not the final result.
	if f.opts.onReady != nil {
		f.opts.onReady(sessionID)
	}

	// Suspend until the recording stops, a chunk write fails, or the caller
	// cancels. There is deliberately no timeout on the recording itself.
	select {
	case <-recorded:
	case <-gctx.Done():
	}

	// Stop accepting chunks, then let the pump drain what is already queued
	// before the terminal call.
	removeData()
	removeRecorded()
	close(stop)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.transition(StateClosing)

	var result json.RawMessage
	switch f.kind {
	case kindRecognition:
		kwargs := map[string]any{}
		if f.opts.trim != nil {
			kwargs["trimBegin"] = f.opts.trim.Begin
			kwargs["trimEnd"] = f.opts.trim.End
		}
		result, err = f.call(ctx, "recognise", []any{sessionID}, kwargs)
	default:
		result, err = f.call(ctx, "close", []any{sessionID}, nil)
	}
	if err != nil {
		return nil, classifyTerminal(f.kind, err, f.challenge.OrganisationID, f.engine.signer)
	}

	payload, err := decodeResult(result)
	if err != nil {
		return nil, err
	}
	mapped := mapResult(f.challenge.OrganisationID, payload, f.engine.signer)

	// A recognition that resolved without a recognised value but with a
	// usable recording is a failure carrying that recording, not a silent
	// success.
	if f.kind == kindRecognition && mapped.Recognised == "" {
		return nil, &RecognitionError{
			Code:     CodeUnrecognised,
			Message:  terminalMessages[kindRecognition][CodeUnrecognised],
			Analysis: &mapped.RecordingResult,
		}
	}
	return mapped, nil
}

// pumpChunks serializes chunk writes: one write RPC at a time, in arrival
// order. Once stop closes it drains what is already queued so chunks
// recorded just before the stop still reach the server ahead of the terminal
// call.
func (f *flow) pumpChunks(ctx context.Context, chunks <-chan []byte, stop <-chan struct{}) error {
	for {
		select {
		case chunk := <-chunks:
			if err := f.writeChunk(ctx, chunk); err != nil {
				return err
			}
		case <-stop:
			for {
				select {
				case chunk := <-chunks:
					if err := f.writeChunk(ctx, chunk); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *flow) writeChunk(ctx context.Context, chunk []byte) error {
	encoded := base64.StdEncoding.EncodeToString(chunk)
	if _, err := f.call(ctx, "write", []any{f.sessionID, encoded, "base64"}, nil); err != nil {
		return err
	}
	f.engine.metrics.ChunksWritten.Add(ctx, 1)
	f.engine.metrics.ChunkBytes.Add(ctx, int64(len(chunk)))
	return nil
}

// waitReady suspends until the recorder grants media access, honouring the
// configured step timeout and caller cancellation.
func (f *flow) waitReady(ctx context.Context, ready <-chan struct{}) error {
	if f.opts.stepTimeout > 0 {
		timer := time.NewTimer(f.opts.stepTimeout)
		defer timer.Stop()
		select {
		case <-ready:
			return nil
		case <-timer.C:
			return errors.New("session: timed out waiting for media permission")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call invokes one RPC step, bounded by the configured step timeout.
// Rejections propagate to the caller untouched; classification happens only
// at the terminal step.
func (f *flow) call(ctx context.Context, procedure string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if f.opts.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.stepTimeout)
		defer cancel()
	}
	return f.engine.channel.Call(ctx, procedure, args, kwargs)
}
