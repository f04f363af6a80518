package api

import (
	"context"
	"net/url"
	"time"
)

// Student is a learner inside an organisation.
type Student struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisationId"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Gender         string    `json:"gender,omitempty"`
	BirthYear      int       `json:"birthYear,omitempty"`
	Created        time.Time `json:"created"`
	Updated        time.Time `json:"updated"`
}

func studentsPath(orgID string) string {
	return "/organisations/" + url.PathEscape(orgID) + "/students"
}

// CreateStudent registers a student inside the given organisation. When the
// student id is left empty the server assigns one.
func (c *Client) CreateStudent(ctx context.Context, orgID string, s Student) (*Student, error) {
	body := map[string]any{
		"firstName": s.FirstName,
		"lastName":  s.LastName,
	}
	if s.ID != "" {
		body["id"] = s.ID
	}
	if s.Gender != "" {
		body["gender"] = s.Gender
	}
	if s.BirthYear != 0 {
		body["birthYear"] = s.BirthYear
	}
	var out Student
	if err := c.post(ctx, studentsPath(orgID), body, &out); err != nil {
		return nil, err
	}
	out.OrganisationID = orgID
	return &out, nil
}

// Student fetches a single student.
func (c *Client) Student(ctx context.Context, orgID, id string) (*Student, error) {
	var out Student
	if err := c.get(ctx, studentsPath(orgID)+"/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	out.OrganisationID = orgID
	return &out, nil
}

// Students lists the students of an organisation.
func (c *Client) Students(ctx context.Context, orgID string) ([]Student, error) {
	var out []Student
	if err := c.get(ctx, studentsPath(orgID), &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].OrganisationID = orgID
	}
	return out, nil
}
