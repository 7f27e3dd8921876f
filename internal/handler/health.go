package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger checks the storage connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the database is reachable.
type HealthHandler struct {
	db       Pinger
	accounts AccountService
	logger   *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, accounts AccountService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:       db,
		accounts: accounts,
		logger:   logger,
	}
}

// HandleHealth pings the database and counts users.
//
// HTTP: GET /api/health
// RESPONSE: {"ok": true, "userCount": 3}
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeError(w, h.logger, err)
		return
	}

	n, err := h.accounts.CountUsers(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"userCount": n,
	})
}
