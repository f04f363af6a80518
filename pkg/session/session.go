// Package session implements the streaming recording/recognition session
// protocol of the ITSLanguage platform.
//
// One call to [Engine.Record] or [Engine.Recognise] drives a complete
// session: a multi-step RPC handshake (init_recording → init_challenge →
// media permission → init_audio), serialized streaming of recorder chunks
// via write calls, and a terminal close/recognise call whose payload becomes
// the typed result. The whole attempt settles exactly once, with either a
// result or an error.
//
// The engine replaces the event-callback style of the platform's browser
// SDKs with an explicit state machine (see [State]) and enforces the
// one-session-at-a-time invariant with a registry keyed to the channel
// rather than a shared mutable field. No step is ever retried: a rejected
// RPC call — including a single failed chunk write — rejects the whole
// session.
package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/itslanguage/itslanguage-go/internal/observe"
	"github.com/itslanguage/itslanguage-go/pkg/connection"
	"github.com/itslanguage/itslanguage-go/pkg/recorder"
)

// kind distinguishes the two session flavours: speech recordings settle with
// a close call, choice recognitions with a recognise call.
type kind int

const (
	kindRecording kind = iota
	kindRecognition
)

func (k kind) String() string {
	if k == kindRecognition {
		return "recognition"
	}
	return "recording"
}

// Challenge describes the server-defined task a session streams audio for.
type Challenge struct {
	// OrganisationID is the organisation the challenge belongs to.
	OrganisationID string

	// ID is the challenge identifier within the organisation.
	ID string
}

// Trimming carries the audio trimming hints sent with a recognise call.
type Trimming struct {
	// Begin is the number of seconds to trim from the start of the audio.
	Begin float64

	// End is the number of seconds to trim from the end of the audio.
	End float64
}

// Option configures a single session attempt.
type Option func(*options)

type options struct {
	onReady     func(sessionID string)
	stepTimeout time.Duration
	trim        *Trimming
}

// WithOnReady registers a callback invoked once the session is streaming:
// the handshake completed and chunk forwarding is active. This is an
// intermediate notification, not the final result. The callback runs on the
// session goroutine and must not block.
func WithOnReady(fn func(sessionID string)) Option {
	return func(o *options) { o.onReady = fn }
}

// WithStepTimeout bounds each individual RPC call and the media-permission
// wait. Zero (the default) imposes no timeout, matching the platform's
// browser SDK behaviour of suspending indefinitely.
func WithStepTimeout(d time.Duration) Option {
	return func(o *options) { o.stepTimeout = d }
}

// WithTrimming attaches trimming hints to the terminal recognise call.
// Ignored for recording sessions.
func WithTrimming(begin, end float64) Option {
	return func(o *options) { o.trim = &Trimming{Begin: begin, End: end} }
}

// Engine drives streaming sessions over one RPC channel. At most one session
// is in flight per engine at any time; concurrent attempts are rejected with
// an [*InProgressError].
//
// All methods are safe for concurrent use.
type Engine struct {
	channel connection.Channel
	signer  URLSigner
	reg     registry
	metrics *observe.Metrics
}

// New creates an Engine on the given channel. signer is used to make audio
// URLs in results playable; it may be nil, in which case URLs are returned
// as the server sent them.
func New(channel connection.Channel, signer URLSigner) *Engine {
	return &Engine{
		channel: channel,
		signer:  signer,
		metrics: observe.Default(),
	}
}

// Record streams one recording attempt for the given speech challenge and
// resolves with the stored recording.
func (e *Engine) Record(ctx context.Context, challenge *Challenge, rec recorder.Recorder, opts ...Option) (*RecordingResult, error) {
	res, err := e.run(ctx, kindRecording, challenge, rec, opts)
	if err != nil {
		return nil, err
	}
	out := res.RecordingResult
	return &out, nil
}

// Recognise streams one recognition attempt for the given choice challenge
// and resolves with the recognised choice. A session the server could record
// but not recognise rejects with a [*RecognitionError] carrying the salvaged
// recording as Analysis.
func (e *Engine) Recognise(ctx context.Context, challenge *Challenge, rec recorder.Recorder, opts ...Option) (*RecognitionResult, error) {
	return e.run(ctx, kindRecognition, challenge, rec, opts)
}

// CurrentSessionID returns the id of the in-flight session, if any. The id
// is empty while a session is initialising but not yet server-assigned.
func (e *Engine) CurrentSessionID() (string, bool) {
	return e.reg.current()
}

// run validates the preconditions, claims the session slot, and executes the
// protocol flow. The slot is released on every terminal outcome.
func (e *Engine) run(ctx context.Context, k kind, challenge *Challenge, rec recorder.Recorder, opts []Option) (*RecognitionResult, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Preconditions, each with its own rejection, checked before any RPC.
	if challenge == nil {
		return nil, ErrChallengeRequired
	}
	if challenge.ID == "" {
		return nil, ErrChallengeID
	}
	if challenge.OrganisationID == "" {
		return nil, ErrChallengeOrganisationID
	}
	if e.channel == nil || !e.channel.Connected() {
		return nil, ErrNotConnected
	}
	if rec.IsRecording() {
		return nil, ErrAlreadyRecording
	}
	l, err := e.reg.acquire()
	if err != nil {
		return nil, err
	}
	// The slot is released before this function returns, success or not, so
	// the next session starts cleanly even after a failure.
	defer l.release()

	ctx, span := observe.StartSpan(ctx, "session "+k.String(),
		trace.WithAttributes(
			attribute.String("organisation_id", challenge.OrganisationID),
			attribute.String("challenge_id", challenge.ID),
		))
	defer span.End()

	start := time.Now()
	e.metrics.ActiveSessions.Add(ctx, 1)
	defer e.metrics.ActiveSessions.Add(ctx, -1)

	f := &flow{
		engine:    e,
		kind:      k,
		challenge: challenge,
		rec:       rec,
		opts:      o,
		lease:     l,
		state:     StateIdle,
	}
	res, err := f.run(ctx)
	e.metrics.RecordSession(ctx, k.String(), start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}
