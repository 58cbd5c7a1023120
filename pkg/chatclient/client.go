// Package chatclient is an HTTP client for the chat endpoint. It satisfies
// guidance.Provider, so a session can run against a remote server the same
// way it runs against an in-process provider.
package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"gracechat-server/internal/domain/guidance"
)

const defaultTimeout = 45 * time.Second

// Client implements the guidance.Provider interface over HTTP.
type Client struct {
	httpClient *resty.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBearerToken attaches an access token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.httpClient.SetAuthToken(token)
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.SetTimeout(timeout)
	}
}

// NewClient creates a Resty-backed client for the given server base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type askRequest struct {
	Question string `json:"question"`
}

// Guidance calls POST /api/chat.
func (c *Client) Guidance(ctx context.Context, question string) (*guidance.Response, error) {
	var answer guidance.Response
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(askRequest{Question: question}).
		SetResult(&answer).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", guidance.ErrUpstreamCall, err)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, guidance.ErrQuotaExceeded
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: chat api returned %d", guidance.ErrUpstreamCall, resp.StatusCode())
	}
	if len(answer.Interpretations) == 0 {
		return nil, guidance.ErrMalformedAnswer
	}
	return &answer, nil
}

// Ensure interface compliance.
var _ guidance.Provider = (*Client)(nil)
