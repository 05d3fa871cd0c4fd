// Package canvas fetches courses and assignments from the Canvas REST API.
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/studyping/studyping/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second

	// pageSize is the only page ever requested. Courses with more than
	// pageSize assignments have the remainder silently dropped; the
	// upstream orders by due date so the dropped ones are the furthest out.
	pageSize = 100
)

// ErrMissingAPIKey is returned when no credential is supplied.
var ErrMissingAPIKey = errors.New("canvas: api key is required")

// Config holds client configuration.
type Config struct {
	// BaseURL is the institutional default, used when a call does not
	// carry a per-subscription override.
	BaseURL string
	Timeout time.Duration
}

// Client is a bearer-token Canvas API client.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a Canvas client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://canvas.instructure.com"
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

type courseRecord struct {
	ID                     int64  `json:"id"`
	Name                   string `json:"name"`
	CourseCode             string `json:"course_code"`
	AccessRestrictedByDate bool   `json:"access_restricted_by_date"`
}

type assignmentRecord struct {
	ID             int64      `json:"id"`
	CourseID       int64      `json:"course_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	DueAt          *time.Time `json:"due_at"`
	PointsPossible *float64   `json:"points_possible"`
	HTMLURL        string     `json:"html_url"`
}

// Courses returns the subscriber's active courses, dropping unnamed courses
// and courses whose enrollment is date-restricted.
func (c *Client) Courses(ctx context.Context, apiKey, baseURL string) ([]domain.Course, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s/api/v1/courses?%s", c.resolveBaseURL(baseURL), url.Values{
		"enrollment_state": {"active"},
		"per_page":         {fmt.Sprintf("%d", pageSize)},
	}.Encode())

	var records []courseRecord
	if err := c.getJSON(ctx, endpoint, apiKey, &records); err != nil {
		return nil, err
	}

	courses := make([]domain.Course, 0, len(records))
	for _, rec := range records {
		if rec.Name == "" || rec.AccessRestrictedByDate {
			continue
		}
		courses = append(courses, domain.Course{
			ID:         rec.ID,
			Name:       rec.Name,
			CourseCode: rec.CourseCode,
		})
	}
	return courses, nil
}

// Assignments returns the first page of a course's assignments, ordered by
// due date upstream.
func (c *Client) Assignments(ctx context.Context, apiKey string, courseID int64, baseURL string) ([]domain.Assignment, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s/api/v1/courses/%d/assignments?%s", c.resolveBaseURL(baseURL), courseID, url.Values{
		"per_page": {fmt.Sprintf("%d", pageSize)},
		"order_by": {"due_at"},
		"bucket":   {"upcoming"},
	}.Encode())

	var records []assignmentRecord
	if err := c.getJSON(ctx, endpoint, apiKey, &records); err != nil {
		return nil, err
	}

	assignments := make([]domain.Assignment, 0, len(records))
	for _, rec := range records {
		assignments = append(assignments, domain.Assignment{
			ID:             rec.ID,
			CourseID:       courseID,
			Name:           rec.Name,
			Description:    rec.Description,
			DueAt:          rec.DueAt,
			PointsPossible: rec.PointsPossible,
			HTMLURL:        rec.HTMLURL,
		})
	}
	return assignments, nil
}

func (c *Client) resolveBaseURL(override string) string {
	if override != "" {
		return override
	}
	return c.config.BaseURL
}

func (c *Client) getJSON(ctx context.Context, endpoint, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Kind: domain.UpstreamCanvas, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.UpstreamError{Kind: domain.UpstreamCanvas, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.UpstreamError{
			Kind:    domain.UpstreamCanvas,
			Status:  resp.StatusCode,
			Message: upstreamMessage(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.UpstreamError{Kind: domain.UpstreamCanvas, Message: "decode response", Err: err}
	}
	return nil
}

// upstreamMessage extracts Canvas's error message when the body is the usual
// {"errors":[{"message":...}]} shape, falling back to the raw body.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
		return parsed.Errors[0].Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
