package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itslanguage/itslanguage-go/pkg/connection"
)

// Precondition errors. Each failed precondition produces its own distinct
// error, surfaced before any RPC call is made.
var (
	// ErrChallengeRequired is returned when no challenge descriptor is given.
	ErrChallengeRequired = errors.New("session: a challenge is required")

	// ErrChallengeID is returned when the challenge has no identifier.
	ErrChallengeID = errors.New("session: the challenge must have an id")

	// ErrChallengeOrganisationID is returned when the challenge has no
	// organisation identifier.
	ErrChallengeOrganisationID = errors.New("session: the challenge must have an organisation id")

	// ErrNotConnected is returned when the RPC channel is absent or closed.
	ErrNotConnected = errors.New("session: the RPC channel is not connected")

	// ErrAlreadyRecording is returned when the recorder reports a recording
	// already in progress.
	ErrAlreadyRecording = errors.New("session: the recorder is already recording")
)

// InProgressError is returned when a session is requested while another one
// is still in flight on the same channel.
type InProgressError struct {
	// SessionID is the id of the in-progress session. Empty when the other
	// session has not yet received its server-assigned id.
	SessionID string
}

// Error implements the error interface.
func (e *InProgressError) Error() string {
	if e.SessionID == "" {
		return "session: another session is already being initialised"
	}
	return fmt.Sprintf("session: session %s is already in progress", e.SessionID)
}

// RecognitionError is a server-reported failure of the terminal step of a
// streaming session. Known error codes carry a user-facing message; unknown
// codes are still surfaced, never swallowed. When the server could produce a
// recording but not a recognition, the salvaged recording is attached as
// Analysis.
type RecognitionError struct {
	// Code is the server's error identifier.
	Code string

	// Message is a human-readable description: the classified message for
	// known codes, otherwise whatever the server provided.
	Message string

	// Analysis is the partial recording the server managed to produce, or
	// nil when none was reported. Its audio URL is token-signed.
	Analysis *RecordingResult
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	return fmt.Sprintf("session: %s: %s", e.Code, e.Message)
}

// CodeUnrecognised is the code used when the server resolves a recognition
// without an actual recognised value but with a usable analysis payload.
const CodeUnrecognised = "unrecognised"

// terminalMessages maps known server error codes to user-facing messages,
// per session kind.
var terminalMessages = map[kind]map[string]string{
	kindRecording: {
		"recording_failed": "The recording could not be stored.",
		"audio_too_short":  "The recording was too short to keep.",
	},
	kindRecognition: {
		"nospeech":           "No speech was detected in the recording.",
		"audio_too_short":    "The recording was too short to recognise.",
		"recognition_failed": "The recording could not be recognised.",
		CodeUnrecognised:     "The speech did not match any of the expected answers.",
	},
}

// classifyTerminal converts a rejection of the terminal RPC step into a
// *RecognitionError. Non-RPC errors (transport failures, cancellation) pass
// through untouched.
func classifyTerminal(k kind, err error, orgID string, signer URLSigner) error {
	var rpcErr *connection.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}

	msg := terminalMessages[k][rpcErr.Code]
	if msg == "" {
		msg = rpcErr.Message
	}
	if msg == "" {
		if raw, ok := rpcErr.Kwargs["message"]; ok {
			_ = json.Unmarshal(raw, &msg)
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("The server reported an unknown failure (%s).", rpcErr.Code)
	}

	return &RecognitionError{
		Code:     rpcErr.Code,
		Message:  msg,
		Analysis: decodeAnalysis(rpcErr.Kwargs, orgID, signer),
	}
}

// decodeAnalysis extracts and maps the optional partial analysis payload
// attached to a rejection. Returns nil when absent or malformed.
func decodeAnalysis(kwargs map[string]json.RawMessage, orgID string, signer URLSigner) *RecordingResult {
	raw, ok := kwargs["analysis"]
	if !ok || string(raw) == "null" {
		return nil
	}
	var payload rawResult
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	mapped := mapResult(orgID, payload, signer)
	return &mapped.RecordingResult
}
