package zelf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Zelf content/AI/comment service. Every request carries
// the API key header and is bounded by the HTTP client's timeout.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient builds a client for the given base URL and key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx response from the service. Transport failures are
// returned as plain errors with no StatusError wrapped inside.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("zelf: unexpected status %d: %s", e.StatusCode, e.Body)
}

// PullContents fetches one page of content from the service.
func (c *Client) PullContents(ctx context.Context, page int) (*ContentPullResponse, error) {
	var out ContentPullResponse
	path := fmt.Sprintf("/api/v1/contents/?page=%d", page)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestAIComments asks the AI service for comments on one content item.
func (c *Client) RequestAIComments(ctx context.Context, req AICommentRequest) ([]AIComment, error) {
	var out []AIComment
	if err := c.do(ctx, http.MethodPost, "/api/v1/ai_comment/", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PostFinalComment delivers one finalized comment. A nil return is a confirmed
// 2xx; callers classify *StatusError values for retry decisions.
func (c *Client) PostFinalComment(ctx context.Context, contentID, commentText string) error {
	req := FinalCommentRequest{ContentID: contentID, CommentText: commentText}
	return c.do(ctx, http.MethodPost, "/api/v1/final_comment/", req, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("zelf: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("zelf: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("zelf: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("zelf: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("zelf: decode response: %w", err)
		}
	}
	return nil
}
