package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"phrasecraft-hq/forge/pkg/rewrite"
)

// sseWriter writes rewrite events in server-sent-event framing:
// "data: <JSON>\n\n", flushed per event so chunks reach the client as
// they arrive.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter sends the stream headers and returns a writer. Fails when
// the underlying writer cannot flush, which would silently buffer the
// whole stream.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteEvent frames and flushes one event.
func (s *sseWriter) WriteEvent(ev rewrite.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", body); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
