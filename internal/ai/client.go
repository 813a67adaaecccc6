// Package ai implements the language-completion client: summarization of
// extracted source text and source-grounded chat. Every remote failure is
// absorbed into a valid-shaped result, so callers never branch on errors
// distinct from the success path.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize limits the completion response body to prevent memory
// exhaustion on a misbehaving endpoint.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a client for the given endpoint. An empty apiKey
// leaves the client unconfigured: it still serves locally synthesized
// summaries and chat fallbacks without touching the network.
func NewClient(baseURL, model, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // allow time for long completions
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the remote service is reachable in
// principle. When false, AI-dependent features degrade rather than fail.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// complete performs one chat-completions round trip. Errors are returned
// as *RemoteError so callers can classify the cause.
func (c *Client) complete(ctx context.Context, messages []wireMessage) (string, error) {
	if !c.Configured() {
		return "", &RemoteError{Cause: CauseAuth, Err: fmt.Errorf("no API key configured")}
	}

	body, err := json.Marshal(wireRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.3,
	})
	if err != nil {
		return "", &RemoteError{Cause: CauseUnclassified, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &RemoteError{Cause: CauseUnclassified, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &RemoteError{Cause: CauseUnclassified, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", &RemoteError{Cause: CauseUnclassified, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(resp.StatusCode, data)
	}

	var parsed wireResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &RemoteError{Cause: CauseUnclassified, Err: fmt.Errorf("parse response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &RemoteError{Cause: CauseUnclassified, Err: fmt.Errorf("no choices in response")}
	}
	if parsed.Choices[0].FinishReason == "content_filter" {
		return "", &RemoteError{Cause: CauseSafety, Err: fmt.Errorf("response blocked by safety filter")}
	}
	return parsed.Choices[0].Message.Content, nil
}
