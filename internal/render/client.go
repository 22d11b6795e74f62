// Package render provides the HTTP client for the external rendering worker.
// The worker executes a generated script's scene and uploads the resulting
// video to object storage, returning the storage key.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Static errors for render dispatch.
var (
	// ErrBaseURLRequired is returned when the worker base URL is not provided.
	ErrBaseURLRequired = errors.New("render: base URL is required")
	// ErrRenderFailed is returned for any transport error, non-success worker
	// response, or success response lacking an artifact key.
	ErrRenderFailed = errors.New("render: render failed")
)

// Dispatcher defines the interface for sending a render request to the
// rendering worker. The call blocks until the worker finishes or the
// context deadline expires; there is no polling protocol.
type Dispatcher interface {
	// Render executes sceneName from source on the worker and returns the
	// storage key of the produced artifact.
	Render(ctx context.Context, jobID, source, sceneName string) (artifactKey string, err error)
}

// Client is the HTTP implementation of Dispatcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a render worker client for the given base URL.
// Request deadlines come from the caller's context; renders routinely run
// for minutes, so the underlying client carries no timeout of its own.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Render sends the script and scene name to the worker and interprets its
// response. No retries are performed; a failed render leaves the job
// unchanged so the same job can be resubmitted.
func (c *Client) Render(ctx context.Context, jobID, source, sceneName string) (string, error) {
	body, err := json.Marshal(renderRequest{
		VideoID:   jobID,
		Script:    source,
		SceneName: sceneName,
	})
	if err != nil {
		return "", fmt.Errorf("render: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("render: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRenderFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: worker returned status %d: %s", ErrRenderFailed, resp.StatusCode, string(respBody))
	}

	var result renderResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrRenderFailed, err)
	}

	if !result.Success {
		if result.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrRenderFailed, result.Error)
		}
		return "", fmt.Errorf("%w: worker reported failure", ErrRenderFailed)
	}

	if result.Filename == "" {
		return "", fmt.Errorf("%w: no artifact key returned", ErrRenderFailed)
	}

	return result.Filename, nil
}
