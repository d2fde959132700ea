package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrDaemonUnavailable reports that no daemon answered on the configured bind
// address.
var ErrDaemonUnavailable = errors.New("daemon API unavailable; is reelpressd running?")

// ClientError is a non-2xx response decoded from the error envelope.
type ClientError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ClientError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon API returned status %d", e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the daemon API.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.StatusCode == http.StatusNotFound
}

// Client talks to a running daemon over its HTTP API.
type Client struct {
	base *url.URL
	key  string
	http *http.Client
}

// NewClient builds a client for the daemon bound at bind, authenticating
// with the configured API key.
func NewClient(bind, key string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("daemon bind address required")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse daemon address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		key:  key,
		http: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Health probes the unauthenticated liveness endpoint.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
	return out, err
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out)
	return out, err
}

// Stats fetches per-state job counts.
func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	var out StatsResponse
	err := c.do(ctx, http.MethodGet, "/stats", nil, nil, &out)
	return out, err
}

// SubmitJob enqueues a new job.
func (c *Client) SubmitJob(ctx context.Context, req SubmitJobRequest) (SubmitJobResponse, error) {
	var out SubmitJobResponse
	err := c.do(ctx, http.MethodPost, "/jobs", nil, req, &out)
	return out, err
}

// GetJob fetches one job with its outputs and events.
func (c *Client) GetJob(ctx context.Context, id string) (JobView, error) {
	var out JobView
	err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// ListJobs fetches job summaries, optionally filtered to one state.
func (c *Client) ListJobs(ctx context.Context, state string) (JobListResponse, error) {
	var query url.Values
	if state = strings.TrimSpace(state); state != "" {
		query = url.Values{"state": []string{state}}
	}
	var out JobListResponse
	err := c.do(ctx, http.MethodGet, "/jobs", query, nil, &out)
	return out, err
}

// ClearJobs removes terminal jobs. Scope is "completed", "failed", or "all".
func (c *Client) ClearJobs(ctx context.Context, scope string) (ClearJobsResponse, error) {
	query := url.Values{}
	if scope = strings.TrimSpace(scope); scope != "" {
		query.Set("scope", scope)
	}
	var out ClearJobsResponse
	err := c.do(ctx, http.MethodDelete, "/jobs", query, nil, &out)
	return out, err
}

// Accounts lists connected social accounts.
func (c *Client) Accounts(ctx context.Context) (AccountListResponse, error) {
	var out AccountListResponse
	err := c.do(ctx, http.MethodGet, "/accounts", nil, nil, &out)
	return out, err
}

// RemoveAccount disconnects one social account by its open id.
func (c *Client) RemoveAccount(ctx context.Context, openID string) (RemoveAccountResponse, error) {
	var out RemoveAccountResponse
	err := c.do(ctx, http.MethodDelete, "/accounts/"+url.PathEscape(openID), nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := *c.base
	target.Path = path
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("x-api-key", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr *net.OpError
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		clientErr := &ClientError{StatusCode: resp.StatusCode}
		var envelope ErrorEnvelope
		if json.Unmarshal(payload, &envelope) == nil {
			clientErr.Code = envelope.Error.Code
			clientErr.Message = envelope.Error.Message
		}
		return clientErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
