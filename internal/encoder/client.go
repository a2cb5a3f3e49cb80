package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"mainline/internal/config"
)

// JobStatus mirrors the encoding service's job lifecycle.
type JobStatus string

const (
	StatusSubmitted   JobStatus = "SUBMITTED"
	StatusProgressing JobStatus = "PROGRESSING"
	StatusComplete    JobStatus = "COMPLETE"
	StatusError       JobStatus = "ERROR"
	StatusCanceled    JobStatus = "CANCELED"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCanceled:
		return true
	}
	return false
}

// Job describes an encoding job as reported by the service.
type Job struct {
	ID             string    `json:"id"`
	Status         JobStatus `json:"status"`
	Percent        int       `json:"percentComplete"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	OutputLocation string    `json:"outputLocation,omitempty"`
}

// NewJobRequest carries everything the service needs to start a transcode.
// AssetKey and ProjectID ride along for correlation in the service's logs.
type NewJobRequest struct {
	SourceLocation   string `json:"sourceLocation"`
	OutputLocation   string `json:"outputLocation"`
	TargetHeight     int    `json:"targetHeight"`
	VideoBitrateKbps int    `json:"videoBitrateKbps"`
	AudioBitrateKbps int    `json:"audioBitrateKbps"`
	AssetKey         string `json:"assetKey"`
	ProjectID        string `json:"projectId"`
}

// ErrRateLimited indicates the service refused the request with 429. The
// retrying transport deliberately passes this through so callers own the
// backoff policy.
var ErrRateLimited = errors.New("encoder rate limited")

// ErrJobNotFound indicates the service has no record of the job id.
var ErrJobNotFound = errors.New("encoder job not found")

// Service is the encoding service surface the orchestrator depends on.
type Service interface {
	CreateJob(ctx context.Context, req NewJobRequest) (*Job, error)
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// HTTPDoer describes the HTTP client used by the encoder client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the encoding service over its JSON API.
type Client struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.client = doer
	}
}

// New constructs a client from configuration. Transient failures (network
// errors, 5xx) retry inside the transport; 429 is excluded from transport
// retries and surfaces as ErrRateLimited.
func New(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.Encoder.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.Encoder.APIKey),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.client == nil {
		client.client = newRetryingClient(cfg.Encoder.Timeout())
	}
	return client
}

func newRetryingClient(timeout time.Duration) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.HTTPClient.Timeout = timeout
	retryClient.Logger = nil
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return retryClient.StandardClient()
}

// CreateJob submits a new transcode job.
func (c *Client) CreateJob(ctx context.Context, jobReq NewJobRequest) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", jobReq, &job); err != nil {
		return nil, err
	}
	if job.ID == "" {
		return nil, errors.New("encoder returned job without id")
	}
	return &job, nil
}

// GetJob fetches the current state of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: empty job id", ErrJobNotFound)
	}
	var job Job
	if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, response any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build encoder request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("encoder request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrJobNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("encoder returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if response != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("decode encoder response: %w", err)
		}
	}
	return nil
}
