package api

import (
	"context"
	"net/url"
	"time"

	"github.com/itslanguage/itslanguage-go/pkg/session"
)

// storedResult is the wire shape of stored recordings and recognitions.
type storedResult struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"studentId"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
	AudioURL   string    `json:"audioUrl"`
	Recognised string    `json:"recognised"`
}

func (r storedResult) recording(orgID string, signer session.URLSigner) session.RecordingResult {
	audioURL := r.AudioURL
	if signer != nil && audioURL != "" {
		audioURL = signer.SignURL(audioURL)
	}
	return session.RecordingResult{
		ID: r.ID,
		Student: session.StudentRef{
			OrganisationID: orgID,
			ID:             r.StudentID,
		},
		Created:  r.Created,
		Updated:  r.Updated,
		AudioURL: audioURL,
	}
}

// Recordings lists the stored recordings of a speech challenge. Audio URLs
// come back token-signed. The organisation id is needed to build the student
// references; the server scopes the challenge by the token's organisation.
func (c *Client) Recordings(ctx context.Context, orgID, challengeID string) ([]session.RecordingResult, error) {
	var raw []storedResult
	path := "/challenges/speech/" + url.PathEscape(challengeID) + "/recordings"
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	out := make([]session.RecordingResult, len(raw))
	for i, r := range raw {
		out[i] = r.recording(orgID, c)
	}
	return out, nil
}

// Recording fetches a single stored recording of a speech challenge.
func (c *Client) Recording(ctx context.Context, orgID, challengeID, id string) (*session.RecordingResult, error) {
	var raw storedResult
	path := "/challenges/speech/" + url.PathEscape(challengeID) + "/recordings/" + url.PathEscape(id)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	rec := raw.recording(orgID, c)
	return &rec, nil
}

// Recognitions lists the stored recognitions of a choice challenge. Audio
// URLs come back token-signed.
func (c *Client) Recognitions(ctx context.Context, orgID, challengeID string) ([]session.RecognitionResult, error) {
	var raw []storedResult
	path := "/challenges/choice/" + url.PathEscape(challengeID) + "/recognitions"
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	out := make([]session.RecognitionResult, len(raw))
	for i, r := range raw {
		out[i] = session.RecognitionResult{
			RecordingResult: r.recording(orgID, c),
			Recognised:      r.Recognised,
		}
	}
	return out, nil
}

// Recognition fetches a single stored recognition of a choice challenge.
func (c *Client) Recognition(ctx context.Context, orgID, challengeID, id string) (*session.RecognitionResult, error) {
	var raw storedResult
	path := "/challenges/choice/" + url.PathEscape(challengeID) + "/recognitions/" + url.PathEscape(id)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, err
	}
	return &session.RecognitionResult{
		RecordingResult: raw.recording(orgID, c),
		Recognised:      raw.Recognised,
	}, nil
}
