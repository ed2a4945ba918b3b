package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaydesk/relaydesk/internal/forward"
)

// Forwarder hands a conversation off to its country's distributor.
type Forwarder interface {
	Forward(ctx context.Context, sessionID string) (string, error)
}

// ActionHandler serves operator-triggered actions.
type ActionHandler struct {
	forwarder Forwarder
}

// NewActionHandler creates a new ActionHandler.
func NewActionHandler(forwarder Forwarder) *ActionHandler {
	return &ActionHandler{forwarder: forwarder}
}

// HandleForwardToDistributor forwards the conversation named in the URL to
// the distributor for its country.
func (h *ActionHandler) HandleForwardToDistributor(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "session ID is required"})
		return
	}

	distributor, err := h.forwarder.Forward(r.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, forward.ErrNoCustomerEmail):
			writeJSON(w, http.StatusBadRequest, jsonResponse{Status: "error", Error: "conversation has no customer email"})
		case errors.Is(err, forward.ErrNoDistributor):
			writeJSON(w, http.StatusNotFound, jsonResponse{Status: "error", Error: "no distributor for this country"})
		default:
			slog.Error("forward action failed", "session_id", sessionID, "error", err)
			writeJSON(w, http.StatusInternalServerError, jsonResponse{Status: "error", Error: "forwarding failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{Status: "success", Distributor: distributor})
}
