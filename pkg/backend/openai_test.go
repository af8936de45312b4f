package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// sseServer returns a test server that streams the given SSE lines for
// any chat completions request.
func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if !req.Stream || !req.StreamOptions.IncludeUsage {
			t.Error("Expected stream=true with include_usage")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
}

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(OpenAIConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "gpt-test",
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient failed: %v", err)
	}
	return client
}

func TestOpenAIClient_StreamsChunksInOrder(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"<result>"}}]}`,
		`data: {"choices":[{"delta":{"content":"foo"}}]}`,
		`data: {"choices":[{"delta":{"content":"</result>"}}]}`,
		`data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":7}}`,
		`data: [DONE]`,
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	stream, err := client.OpenStream(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Close()

	var text string
	var usage *TokenUsage
	for {
		chunk, err := stream.Read(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		text += chunk.Text
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}

	if text != "<result>foo</result>" {
		t.Errorf("Accumulated text = %q", text)
	}
	if usage == nil {
		t.Fatal("Expected usage metadata")
	}
	if usage.PromptTokens != 12 || usage.CompletionTokens != 7 {
		t.Errorf("Unexpected usage: %+v", usage)
	}
	if usage.Total() != 19 {
		t.Errorf("Expected total 19, got %d", usage.Total())
	}
}

func TestOpenAIClient_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.OpenStream(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("Expected error for 503 response")
	}

	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("Expected *RequestError, got %T", err)
	}
	if reqErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", reqErr.StatusCode)
	}
}

func TestOpenAIClient_MalformedChunk(t *testing.T) {
	server := sseServer(t, []string{
		`data: {not json`,
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	stream, err := client.OpenStream(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Close()

	_, err = stream.Read(context.Background())
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("Expected *ParseError, got %v", err)
	}
}

func TestOpenAIClient_ReadAfterClose(t *testing.T) {
	server := sseServer(t, []string{`data: [DONE]`})
	defer server.Close()

	client := newTestClient(t, server.URL)
	stream, err := client.OpenStream(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := stream.Read(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF after close, got %v", err)
	}
}

func TestOpenAIClient_ContextCancellation(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"choices":[{"delta":{"content":"x"}}]}`,
	})
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.OpenStream(ctx, "system", "user")
	if err != nil {
		t.Fatalf("OpenStream failed: %v", err)
	}
	defer stream.Close()

	cancel()
	if _, err := stream.Read(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
