package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vidvault/backend/internal/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondStatus writes a bare status code with an empty body. The video
// endpoints report not-found and precondition failures this way.
func respondStatus(ctx context.Context, w http.ResponseWriter, status int, reason string) {
	w.WriteHeader(status)

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "reason", reason)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "reason", reason)
	}
}
