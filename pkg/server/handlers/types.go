package handlers

import (
	"encoding/json"
	"net/http"
)

// rewriteRequest is the wire form of a rewrite submission.
type rewriteRequest struct {
	RawInput string `json:"rawInput"`
	Tone     string `json:"tone"`
}

// quotaResponse is the wire form of the quota snapshot.
type quotaResponse struct {
	Used    int    `json:"used"`
	Limit   int    `json:"limit"`
	Plan    string `json:"plan"`
	ResetAt string `json:"resetAt"`
}

// historyRecord is the wire form of one persisted rewrite.
type historyRecord struct {
	ID         string   `json:"id"`
	RawInput   string   `json:"rawInput"`
	Variations []string `json:"variations"`
	Tone       string   `json:"tone"`
	TokenCount int      `json:"tokenCount"`
	Model      string   `json:"model"`
	DurationMs int64    `json:"durationMs"`
	CreatedAt  string   `json:"createdAt"`
}

// historyListResponse is a page of history records.
type historyListResponse struct {
	Records    []historyRecord `json:"records"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the single-key error envelope used by every
// non-streaming rejection.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
