package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"
)

const (
	GPT4o          = "gpt-4o"
	defaultBaseURL = "https://api.openai.com/v1"
)

// HTTPClient interface for mocking http.Client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	token      string
	model      string
	baseURL    string
	httpClient HTTPClient
	limiter    *rate.Limiter
}

type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatCompletionRequest struct {
	Model          string                  `json:"model"`
	Messages       []ChatCompletionMessage `json:"messages"`
	MaxTokens      int                     `json:"max_tokens,omitempty"`
	Temperature    float64                 `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat         `json:"response_format,omitempty"`
}

type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int    `json:"created"`
	Choices []struct {
		Message ChatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. a proxy or test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient swaps the transport used for requests.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLimiter paces outgoing requests.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(token, model string, opts ...Option) *Client {
	if model == "" {
		model = GPT4o
	}
	c := &Client{
		token:      token,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model used by Complete.
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the text of the
// first choice. The model is asked to answer with a JSON object.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatCompletionMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0.7,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from AI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
