package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient implements Generator against an OpenAI-compatible chat
// completions endpoint with SSE streaming.
type OpenAIClient struct {
	config OpenAIConfig
	client *http.Client
}

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is the bearer token.
	APIKey string

	// Model is the model identifier sent with every request.
	Model string

	// Timeout bounds the whole streaming call, connect through last
	// byte. Default: 30 seconds.
	Timeout time.Duration

	// MaxIdleConns configures the connection pool. Default: 10.
	MaxIdleConns int
}

// NewOpenAIClient creates a client with connection pooling.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &OpenAIClient{
		config: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string {
	return c.config.Model
}

// chatRequest is the wire format of a streaming chat completions request.
type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []chatMessage `json:"messages"`
	Stream        bool          `json:"stream"`
	StreamOptions streamOptions `json:"stream_options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamOptions struct {
	// IncludeUsage asks the backend to emit a final chunk carrying
	// cumulative token usage.
	IncludeUsage bool `json:"include_usage"`
}

// chatStreamChunk is the wire format of one SSE data payload.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// OpenStream starts a streaming generation.
func (c *OpenAIClient) OpenStream(ctx context.Context, systemInstruction, userInstruction string) (Stream, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: userInstruction},
		},
		Stream:        true,
		StreamOptions: streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &StreamError{
			Model:   c.config.Model,
			Message: "failed to open stream",
			Cause:   err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		// Read a bounded slice of the error body for the message
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &RequestError{
			Model:      c.config.Model,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(errBody)),
		}
	}

	return &sseStream{
		model:   c.config.Model,
		body:    resp.Body,
		scanner: bufio.NewScanner(resp.Body),
	}, nil
}

// sseStream reads Server-Sent Events from the backend's response body.
type sseStream struct {
	model   string
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// Read reads the next chunk from the stream.
// Returns nil, io.EOF when the stream ends normally.
func (s *sseStream) Read(ctx context.Context) (*StreamChunk, error) {
	if s.closed {
		return nil, io.EOF
	}

	for {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, &StreamError{
					Model:   s.model,
					Message: "failed to read stream",
					Cause:   err,
				}
			}
			// End of stream without a [DONE] marker; treat as natural
			// exhaustion.
			return nil, io.EOF
		}

		line := s.scanner.Text()

		// Skip blank separators and non-data lines (comments, event types)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil, io.EOF
		}

		var wire chatStreamChunk
		if err := json.Unmarshal([]byte(data), &wire); err != nil {
			return nil, &ParseError{
				Model:    s.model,
				RawChunk: data,
				Cause:    err,
			}
		}

		chunk := &StreamChunk{}
		if len(wire.Choices) > 0 {
			chunk.Text = wire.Choices[0].Delta.Content
		}
		if wire.Usage != nil {
			chunk.Usage = &TokenUsage{
				PromptTokens:     wire.Usage.PromptTokens,
				CompletionTokens: wire.Usage.CompletionTokens,
			}
		}

		return chunk, nil
	}
}

// Close closes the stream and releases the connection.
func (s *sseStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
