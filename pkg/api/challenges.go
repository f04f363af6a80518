package api

import (
	"context"
	"net/url"
	"time"
)

// SpeechChallenge is a free-speech exercise: the student records audio for a
// topic and the recording is stored as-is.
type SpeechChallenge struct {
	ID                string    `json:"id"`
	Topic             string    `json:"topic"`
	ReferenceAudioURL string    `json:"referenceAudioUrl,omitempty"`
	Created           time.Time `json:"created"`
	Updated           time.Time `json:"updated"`
}

// ChoiceChallenge is a closed-answer exercise: the student speaks one of a
// fixed set of choices and the platform recognises which one was said.
type ChoiceChallenge struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Choices  []string  `json:"choices"`
	Status   string    `json:"status,omitempty"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// CreateSpeechChallenge registers a speech challenge.
func (c *Client) CreateSpeechChallenge(ctx context.Context, ch SpeechChallenge) (*SpeechChallenge, error) {
	body := map[string]any{"topic": ch.Topic}
	if ch.ID != "" {
		body["id"] = ch.ID
	}
	var out SpeechChallenge
	if err := c.post(ctx, "/challenges/speech", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpeechChallenge fetches a single speech challenge.
func (c *Client) SpeechChallenge(ctx context.Context, id string) (*SpeechChallenge, error) {
	var out SpeechChallenge
	if err := c.get(ctx, "/challenges/speech/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SpeechChallenges lists all speech challenges.
func (c *Client) SpeechChallenges(ctx context.Context) ([]SpeechChallenge, error) {
	var out []SpeechChallenge
	if err := c.get(ctx, "/challenges/speech", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChoiceChallenge registers a choice challenge. Recognition for the
// challenge becomes available once its status is "prepared".
func (c *Client) CreateChoiceChallenge(ctx context.Context, ch ChoiceChallenge) (*ChoiceChallenge, error) {
	body := map[string]any{
		"question": ch.Question,
		"choices":  ch.Choices,
	}
	if ch.ID != "" {
		body["id"] = ch.ID
	}
	var out ChoiceChallenge
	if err := c.post(ctx, "/challenges/choice", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChoiceChallenge fetches a single choice challenge.
func (c *Client) ChoiceChallenge(ctx context.Context, id string) (*ChoiceChallenge, error) {
	var out ChoiceChallenge
	if err := c.get(ctx, "/challenges/choice/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChoiceChallenges lists all choice challenges.
func (c *Client) ChoiceChallenges(ctx context.Context) ([]ChoiceChallenge, error) {
	var out []ChoiceChallenge
	if err := c.get(ctx, "/challenges/choice", &out); err != nil {
		return nil, err
	}
	return out, nil
}
