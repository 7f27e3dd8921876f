package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/auth"
	"github.com/sakif/writespace/internal/model"
)

// ContentService is the ownership-checked CRUD the content handler drives.
// *service.ContentService implements it.
type ContentService interface {
	Create(ctx context.Context, userID, title, body string) (*model.Content, error)
	List(ctx context.Context, userID string) ([]model.Content, error)
	Get(ctx context.Context, userID, id string) (*model.Content, error)
	Update(ctx context.Context, userID, id, title, body string) (*model.Content, error)
	Delete(ctx context.Context, userID, id string) error
}

// ContentHandler serves the /api/secure/content routes.
//
// WHERE DOES THE USER ID COME FROM?
// Always from the Identity the Gate put in the request context. Never from
// the URL, the body or a header this handler parses itself. Every service
// call is scoped to that id.
type ContentHandler struct {
	contents ContentService
	logger   *slog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(contents ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		contents: contents,
		logger:   logger,
	}
}

type contentRequest struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required"`
}

// identity returns the caller's verified identity. A protected handler
// reached without one was mounted outside the Gate; it answers 401.
func identity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		logger.Error("protected handler reached without identity", slog.String("path", r.URL.Path))
		writeError(w, logger, apperror.Unauthorized("Unauthorized"))
		return auth.Identity{}, false
	}
	return id, true
}

// HandleList returns the caller's items, newest first.
//
// HTTP: GET /api/secure/content
// RESPONSE: {"ok": true, "contents": [...]}   ([] when there are none)
func (h *ContentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	items, err := h.contents.List(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"contents": items,
	})
}

// HandleCreate stores a new item owned by the caller.
//
// HTTP: POST /api/secure/content
// REQUEST BODY: {"title": "...", "body": "<serialized editor markup>"}
// RESPONSE:     {"ok": true, "content": {...}}
func (h *ContentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.contents.Create(r.Context(), id.UserID, req.Title, req.Body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"content": item,
	})
}

// HandleGet returns one of the caller's items.
//
// HTTP: GET /api/secure/content/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") extracts the {id} segment from the matched route.
func (h *ContentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.contents.Get(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"content": item,
	})
}

// HandleUpdate replaces title and body of one of the caller's items.
//
// HTTP: PUT /api/secure/content/{id}
// REQUEST BODY: {"title": "...", "body": "..."}
// RESPONSE:     {"ok": true, "content": {...}}
func (h *ContentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	item, err := h.contents.Update(r.Context(), id.UserID, chi.URLParam(r, "id"), req.Title, req.Body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"content": item,
	})
}

// HandleDelete removes one of the caller's items.
//
// HTTP: DELETE /api/secure/content/{id}
// RESPONSE: {"ok": true, "message": "Content deleted"}
func (h *ContentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.contents.Delete(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Content deleted",
	})
}
