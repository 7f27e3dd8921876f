package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/writespace/internal/apperror"
	"github.com/sakif/writespace/internal/generator"
)

// GenerateHandler streams AI-drafted text to the editor.
type GenerateHandler struct {
	gen    generator.Generator // nil when no backend is configured
	logger *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler. gen may be nil.
func NewGenerateHandler(gen generator.Generator, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		gen:    gen,
		logger: logger,
	}
}

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// HandleGenerate streams a completion for the given prompt.
//
// HTTP: POST /api/secure/generate
// REQUEST BODY: {"prompt": "..."}
// RESPONSE:     text/plain, written chunk by chunk as the model produces it
//
// STREAMING:
// Each chunk is written and flushed immediately so the editor can show text
// as it arrives. http.NewResponseController finds the Flush method through
// our logging middleware's wrapper (it implements Unwrap).
//
// The first chunk is read before any header goes out, so a backend that fails
// straight away still gets a 503 envelope. After that the status is fixed at
// 200 and a backend error can only be logged and end the response early.
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	if h.gen == nil {
		writeError(w, h.logger, apperror.Unavailable("AI generation is not configured"))
		return
	}

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if len(req.Prompt) > generator.MaxPromptLength {
		writeError(w, h.logger, apperror.ValidationFailed("prompt",
			fmt.Sprintf("prompt must be at most %d bytes", generator.MaxPromptLength)))
		return
	}

	chunks, err := h.gen.Generate(r.Context(), generator.Request{Prompt: req.Prompt})
	if err != nil {
		if errors.Is(err, generator.ErrBusy) {
			writeError(w, h.logger, apperror.Unavailable("AI generation is busy, try again shortly"))
			return
		}
		h.logger.Error("generation failed to start",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, h.logger, apperror.Unavailable("AI generation is unavailable"))
		return
	}

	first, open := <-chunks
	if open && first.Err != nil {
		h.logger.Error("generation failed before output",
			slog.String("userID", id.UserID),
			slog.String("error", first.Err.Error()),
		)
		writeError(w, h.logger, apperror.Unavailable("AI generation is unavailable"))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	// The server's WriteTimeout is sized for JSON replies. A stream is bounded
	// by the generator's own timeout instead.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Debug("clearing write deadline failed", slog.String("error", err.Error()))
	}

	var written int
	send := func(text string) bool {
		n, err := io.WriteString(w, text)
		written += n
		if err != nil {
			// Client went away; the generator stops when r.Context() is cancelled.
			return false
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			h.logger.Debug("flush failed", slog.String("error", err.Error()))
		}
		return true
	}

	if open {
		if !send(first.Text) {
			return
		}
		for c := range chunks {
			if c.Err != nil {
				h.logger.Error("generation stream failed",
					slog.String("userID", id.UserID),
					slog.Int("bytes", written),
					slog.String("error", c.Err.Error()),
				)
				return
			}
			if !send(c.Text) {
				return
			}
		}
	}

	h.logger.Info("generation completed",
		slog.String("userID", id.UserID),
		slog.Int("bytes", written),
	)
}
