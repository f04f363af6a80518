package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// URLSigner appends an access token to audio URLs returned by the server so
// they are directly playable. The REST client implements this; anything else
// (a token vault, a CDN signer) works too.
type URLSigner interface {
	// SignURL returns raw with access credentials attached.
	SignURL(raw string) string
}

// StudentRef identifies a student within an organisation.
type StudentRef struct {
	OrganisationID string
	ID             string
}

// RecordingResult is the immutable outcome of a successful recording
// session.
type RecordingResult struct {
	// ID is the server-assigned recording id.
	ID string

	// Student references the student the recording belongs to.
	Student StudentRef

	// Created and Updated are the server-side timestamps.
	Created time.Time
	Updated time.Time

	// AudioURL is the playable audio location, token-signed.
	AudioURL string
}

// RecognitionResult is the immutable outcome of a successful recognition
// session: a recording plus the recognised value.
type RecognitionResult struct {
	RecordingResult

	// Recognised is the choice the server recognised from the audio.
	Recognised string
}

// rawResult mirrors the wire shape of the terminal call's resolved payload
// (and of the analysis payload attached to rejections). The recognised field
// may be absent; the mapper tolerates that.
type rawResult struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
	AudioURL   string    `json:"audioUrl"`
	Recognised string    `json:"recognised"`
}

// decodeResult parses the terminal call's resolved payload.
func decodeResult(raw json.RawMessage) (rawResult, error) {
	var payload rawResult
	if err := json.Unmarshal(raw, &payload); err != nil {
		return rawResult{}, fmt.Errorf("session: malformed terminal payload: %w", err)
	}
	return payload, nil
}

// mapResult transforms a raw payload into a typed result: the student
// reference is built from the challenge's organisation id and the payload's
// student id, and the audio URL goes through the signer. A nil signer leaves
// the URL untouched.
func mapResult(orgID string, payload rawResult, signer URLSigner) *RecognitionResult {
	audioURL := payload.AudioURL
	if signer != nil && audioURL != "" {
		audioURL = signer.SignURL(audioURL)
	}
	return &RecognitionResult{
		RecordingResult: RecordingResult{
			ID: payload.ID,
			Student: StudentRef{
				OrganisationID: orgID,
				ID:             payload.StudentID,
			},
			Created:  payload.Created,
			Updated:  payload.Updated,
			AudioURL: audioURL,
		},
		Recognised: payload.Recognised,
	}
}
