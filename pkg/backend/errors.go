package backend

import "fmt"

// StreamError represents a failure while reading a generation stream.
type StreamError struct {
	// Model is the backend model the stream was opened against.
	Model string

	// Message describes the failure.
	Message string

	// Cause is the underlying error (if any).
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("backend stream error (%s): %s: %v", e.Model, e.Message, e.Cause)
	}
	return fmt.Sprintf("backend stream error (%s): %s", e.Model, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StreamError) Unwrap() error {
	return e.Cause
}

// RequestError represents a non-2xx response to the stream-open request.
type RequestError struct {
	// Model is the backend model requested.
	Model string

	// StatusCode is the HTTP status returned by the backend.
	StatusCode int

	// Message is the error body, truncated for logging.
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("backend request failed (%s, status %d): %s", e.Model, e.StatusCode, e.Message)
}

// ParseError represents a malformed chunk in the backend's stream.
type ParseError struct {
	// Model is the backend model.
	Model string

	// RawChunk is the chunk that failed to parse.
	RawChunk string

	// Cause is the underlying parse error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("backend chunk parse error (%s): %v", e.Model, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
