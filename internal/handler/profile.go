package handler

import (
	"log/slog"
	"net/http"
)

// ProfileHandler returns the caller's own account.
type ProfileHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(accounts AccountService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// HandleProfile returns the currently authenticated user's public profile.
//
// HTTP: GET /api/secure/profile
// RESPONSE: {"ok": true, "user": {"id": "...", "email": "...", "name": "..."}}
//
// A token can outlive its user. In that case the Gate still lets the request
// through (the token is valid) and this answers 404 "User not found".
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.accounts.Profile(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"user": user,
	})
}
