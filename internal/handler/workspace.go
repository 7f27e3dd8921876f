// Package handler contains HTTP request handlers for the workspace application.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc, a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic. They are the "glue" between HTTP and your app.
package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// WorkspaceHandler serves the editor page.
// It holds parsed templates so we don't re-parse them on every request.
type WorkspaceHandler struct {
	templates     *template.Template
	githubEnabled bool
	aiEnabled     bool
	logger        *slog.Logger
}

// NewWorkspaceHandler parses the HTML templates once at startup.
//
// TEMPLATE PARSING:
// base.html defines the overall page with a {{template "content" .}} placeholder;
// workspace.html fills it with {{define "content"}}...{{end}}.
func NewWorkspaceHandler(templateDir string, githubEnabled, aiEnabled bool, logger *slog.Logger) (*WorkspaceHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "workspace.html"),
	)
	if err != nil {
		return nil, err
	}

	return &WorkspaceHandler{
		templates:     tmpl,
		githubEnabled: githubEnabled,
		aiEnabled:     aiEnabled,
		logger:        logger,
	}, nil
}

// HandleWorkspace renders the editor page.
//
// The page itself is public. It holds no user data: the script reads the
// token from localStorage and loads everything through /api/secure.
func (h *WorkspaceHandler) HandleWorkspace(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":         "Writespace",
		"GitHubEnabled": h.githubEnabled,
		"AIEnabled":     h.aiEnabled,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
