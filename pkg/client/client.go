// Package client talks to a running kiln API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kiln-build/kiln/internal/models"
)

// Client wraps HTTP interaction with the kiln REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	// streamClient has no timeout; event streams stay open.
	streamClient *http.Client
}

// New constructs a client from the provided configuration.
func New(cfg *Config) *Client {
	return &Client{
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		streamClient: &http.Client{},
	}
}

// APIError is returned for any response with a 4xx or 5xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("request failed: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) resolve(path string, query url.Values) string {
	raw := strings.TrimSuffix(c.baseURL.String(), "/") + path
	if len(query) == 0 {
		return raw
	}
	return raw + "?" + query.Encode()
}

func decodeBody(body io.ReadCloser, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	decodeErr := decoder.Decode(target)
	closeErr := body.Close()
	if decodeErr != nil {
		if closeErr != nil {
			return errors.Join(decodeErr, closeErr)
		}
		return decodeErr
	}
	return closeErr
}

func apiError(resp *http.Response) error {
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, query), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apiError(resp)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, v any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	if v == nil {
		return resp.Body.Close()
	}

	return decodeBody(resp.Body, v)
}

func jobPath(id uint64, suffix string) string {
	return "/v1/jobs/" + strconv.FormatUint(id, 10) + suffix
}

// SubmitRequest is the body of a job submission.
type SubmitRequest struct {
	Name    string  `json:"name"`
	Command string  `json:"command"`
	Output  *string `json:"output,omitempty"`
}

// Submit queues a new job.
func (c *Client) Submit(ctx context.Context, req *SubmitRequest) (*models.Job, error) {
	job := &models.Job{}
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", nil, req, job); err != nil {
		return nil, err
	}
	return job, nil
}

// JobPage is one page of the job listing, newest first.
type JobPage struct {
	Jobs  models.Jobs `json:"jobs" yaml:"jobs"`
	Pages int64       `json:"pages" yaml:"pages"`
}

// List fetches a 1-indexed page of jobs. A zero pageSize uses the
// server default.
func (c *Client) List(ctx context.Context, page, pageSize int) (*JobPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		query.Set("page_size", strconv.Itoa(pageSize))
	}

	resp := &JobPage{}
	if err := c.do(ctx, http.MethodGet, "/v1/jobs", query, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Get(ctx context.Context, id uint64) (*models.Job, error) {
	job := &models.Job{}
	if err := c.do(ctx, http.MethodGet, jobPath(id, ""), nil, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Cancel deletes the job and reports whether it existed.
func (c *Client) Cancel(ctx context.Context, id uint64) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, jobPath(id, ""), nil, nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// Reset requeues a failed job.
func (c *Client) Reset(ctx context.Context, id uint64) (*models.Job, error) {
	job := &models.Job{}
	if err := c.do(ctx, http.MethodPost, jobPath(id, "/reset"), nil, nil, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Log copies the job's log to w.
func (c *Client) Log(ctx context.Context, id uint64, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, jobPath(id, "/log"), nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// Recipes lists the runner's recipes, optionally filtered by a glob.
func (c *Client) Recipes(ctx context.Context, match string) ([]string, error) {
	query := url.Values{}
	if match != "" {
		query.Set("match", match)
	}

	var recipes []string
	if err := c.do(ctx, http.MethodGet, "/v1/recipes", query, nil, &recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

type healthResponse struct {
	Status string `json:"status"`
}

// Ping verifies the API health endpoint responds with a healthy status.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Keep health parsing permissive so extra payload fields don't break diagnostics.
	decoder := json.NewDecoder(resp.Body)
	var payload healthResponse
	decodeErr := decoder.Decode(&payload)
	closeErr := resp.Body.Close()
	if decodeErr != nil {
		if closeErr != nil {
			return fmt.Errorf("health check failed: %w", errors.Join(decodeErr, closeErr))
		}
		return fmt.Errorf("health check failed: %w", decodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("health check failed: %w", closeErr)
	}

	if strings.ToLower(strings.TrimSpace(payload.Status)) != "healthy" {
		return fmt.Errorf("health check failed: status=%q", payload.Status)
	}

	return nil
}
