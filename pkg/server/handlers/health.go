package handlers

import "net/http"

// HealthHandler serves GET /healthz. Liveness only: the process is up
// and serving. Dependency health shows up in metrics and logs, not
// here, so a Redis blip does not get the process restarted.
type HealthHandler struct{}

// NewHealthHandler creates the health endpoint handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
