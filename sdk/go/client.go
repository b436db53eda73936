package caselinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Caseline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Case represents the API case model.
type Case struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	OwnerID         string  `json:"owner_id"`
	DesignerID      *string `json:"designer_id,omitempty"`
	ReviewerID      *string `json:"reviewer_id,omitempty"`
	RefinementCount int     `json:"refinement_count"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// AuditEntry is one audit trail record.
type AuditEntry struct {
	ID          int64   `json:"id"`
	CaseID      string  `json:"case_id"`
	FromStatus  *string `json:"from_status,omitempty"`
	ToStatus    string  `json:"to_status"`
	PerformedBy string  `json:"performed_by"`
	Note        string  `json:"note,omitempty"`
	TS          string  `json:"ts"`
}

// AvailableTransitions lists the statuses the caller may move a case to.
type AvailableTransitions struct {
	CaseID string   `json:"case_id"`
	Status string   `json:"status"`
	Next   []string `json:"next"`
}

// StatusReport aggregates case counts.
type StatusReport struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Buckets  map[string]int `json:"buckets,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedCases wraps list responses with cursors.
type PaginatedCases struct {
	Items      []Case `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// CreateCase creates a case. ownerID may be empty when the authenticated
// principal is an owner.
func (c *Client) CreateCase(ctx context.Context, ownerID string) (Case, error) {
	body := map[string]any{}
	if ownerID != "" {
		body["owner_id"] = ownerID
	}
	var resp Case
	err := c.do(ctx, http.MethodPost, "v0/cases", body, &resp)
	return resp, err
}

// GetCase fetches a case by id.
func (c *Client) GetCase(ctx context.Context, caseID string) (Case, error) {
	var resp Case
	err := c.do(ctx, http.MethodGet, c.casePath(caseID, ""), nil, &resp)
	return resp, err
}

// ListCases returns a paginated case listing.
func (c *Client) ListCases(ctx context.Context, status string, limit int, cursor string) (PaginatedCases, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "v0/cases"
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var resp PaginatedCases
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Transition requests a status change.
func (c *Client) Transition(ctx context.Context, caseID, to, note string) (Case, error) {
	body := map[string]any{"to": to}
	if note != "" {
		body["note"] = note
	}
	var resp Case
	err := c.do(ctx, http.MethodPost, c.casePath(caseID, "transition"), body, &resp)
	return resp, err
}

// Assign sets the designer and reviewer on a case (admin only).
func (c *Client) Assign(ctx context.Context, caseID, designerID, reviewerID string) (Case, error) {
	body := map[string]any{}
	if designerID != "" {
		body["designer_id"] = designerID
	}
	if reviewerID != "" {
		body["reviewer_id"] = reviewerID
	}
	var resp Case
	err := c.do(ctx, http.MethodPost, c.casePath(caseID, "assign"), body, &resp)
	return resp, err
}

// History returns the audit trail for a case, oldest first.
func (c *Client) History(ctx context.Context, caseID string) ([]AuditEntry, error) {
	var resp []AuditEntry
	err := c.do(ctx, http.MethodGet, c.casePath(caseID, "history"), nil, &resp)
	return resp, err
}

// Transitions returns the statuses the caller may move the case to.
func (c *Client) Transitions(ctx context.Context, caseID string) (AvailableTransitions, error) {
	var resp AvailableTransitions
	err := c.do(ctx, http.MethodGet, c.casePath(caseID, "transitions"), nil, &resp)
	return resp, err
}

// Refinements returns the refinement count for a case in [start, end).
// Empty bounds mean unbounded.
func (c *Client) Refinements(ctx context.Context, caseID, start, end string) (int, error) {
	q := url.Values{}
	if start != "" {
		q.Set("start", start)
	}
	if end != "" {
		q.Set("end", end)
	}
	endpoint := c.casePath(caseID, "refinements")
	if enc := q.Encode(); enc != "" {
		endpoint += "?" + enc
	}
	var resp struct {
		Count int `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Count, err
}

// StatusReport returns case counts by status and bucket.
func (c *Client) StatusReport(ctx context.Context) (StatusReport, error) {
	var resp StatusReport
	err := c.do(ctx, http.MethodGet, "v0/reports/status", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) casePath(caseID, tail string) string {
	p := fmt.Sprintf("v0/cases/%s", url.PathEscape(caseID))
	if tail != "" {
		p += "/" + strings.TrimLeft(tail, "/")
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
