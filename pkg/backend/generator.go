package backend

import "context"

// TokenUsage tracks token consumption reported by the backend.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int
}

// Total returns prompt plus completion tokens.
func (u TokenUsage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// StreamChunk is one increment of a generation stream. Text may be empty
// on chunks that only carry usage metadata; Usage is non-nil only when
// the backend reported usage on this chunk (some backends report
// cumulative usage solely on the terminal chunk).
type StreamChunk struct {
	Text  string
	Usage *TokenUsage
}

// Stream is an open generation stream. Read returns chunks in the
// backend's emission order and io.EOF on natural exhaustion. Close
// releases the underlying connection and is safe to call after any Read
// outcome.
type Stream interface {
	Read(ctx context.Context) (*StreamChunk, error)
	Close() error
}

// Generator opens generation streams. Model identifies the backend model
// for persistence records.
type Generator interface {
	// OpenStream starts a generation with the given system and user
	// instructions. The returned stream must be closed by the caller.
	OpenStream(ctx context.Context, systemInstruction, userInstruction string) (Stream, error)

	// Model returns the backend model identifier.
	Model() string
}
