package api

import (
	"context"
	"net/url"
	"time"
)

// Organisation is a tenant on the platform. Challenges, students and their
// recordings all live inside one organisation.
type Organisation struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// CreateOrganisation registers a new organisation. When id is left empty the
// server assigns one.
func (c *Client) CreateOrganisation(ctx context.Context, org Organisation) (*Organisation, error) {
	body := map[string]string{"name": org.Name}
	if org.ID != "" {
		body["id"] = org.ID
	}
	var out Organisation
	if err := c.post(ctx, "/organisations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Organisation fetches a single organisation by id.
func (c *Client) Organisation(ctx context.Context, id string) (*Organisation, error) {
	var out Organisation
	if err := c.get(ctx, "/organisations/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Organisations lists all organisations visible to the current token.
func (c *Client) Organisations(ctx context.Context) ([]Organisation, error) {
	var out []Organisation
	if err := c.get(ctx, "/organisations", &out); err != nil {
		return nil, err
	}
	return out, nil
}
