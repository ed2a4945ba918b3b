package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleIndex describes the service and its endpoints.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "relaydesk",
		"status":  "running",
		"endpoints": map[string]string{
			"form_webhook":  "POST /webhook/jotform",
			"inbound_email": "POST /webhook/mailgun-incoming",
			"forward":       "POST /action/forward-to-distributor/{sessionID}",
			"health":        "GET /health",
		},
	})
}

// jsonResponse is the envelope for all API JSON responses.
type jsonResponse struct {
	Status      string `json:"status,omitempty"`
	Message     string `json:"message,omitempty"`
	Distributor string `json:"distributor,omitempty"`
	Error       string `json:"error,omitempty"`
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}
