// Package generator defines the text generation collaborator behind
// POST /api/secure/generate.
//
// The server never interprets generated text. A Generator turns a prompt into
// a stream of text chunks; the handler copies them to the response as they
// arrive. Concrete backends live in sub-packages (see generator/ollama).
package generator

import (
	"context"
	"errors"
	"time"
)

// SystemPrompt steers every completion toward content the editor can load.
const SystemPrompt = "You are an AI writing assistant. " +
	"You help the user write blog posts, social media content, and more. " +
	"Output primarily in Markdown format suitable for a rich-text editor."

// MaxPromptLength bounds the prompt accepted from clients, in bytes.
const MaxPromptLength = 8 * 1024

// ErrBusy is returned when every generation slot is taken and the caller's
// context ends before one frees up.
var ErrBusy = errors.New("generator: all slots busy")

// Request represents a request to generate text.
type Request struct {
	Prompt string `json:"prompt"`
}

// Chunk is one piece of a streamed completion. A chunk carries either text or
// a terminal error; the channel is closed after the last chunk.
type Chunk struct {
	Text string
	Err  error
}

// Generator represents the core interface for streaming completions.
//
// Generate returns once the backend has accepted the request. Chunks arrive on
// the returned channel until it is closed. Cancelling ctx stops the stream.
type Generator interface {
	Generate(ctx context.Context, req Request) (<-chan Chunk, error)
}

// Config holds the settings shared by generator backends.
type Config struct {
	// BaseURL is the backend's HTTP root, without a trailing slash.
	BaseURL string
	// Model is the backend model name.
	Model string
	// Timeout bounds a whole generation, including streaming.
	Timeout time.Duration
	// MaxConcurrent is the number of generations allowed to run at once.
	MaxConcurrent int
}

// DefaultConfig provides sensible defaults for a local model server.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:11434",
		Model:         "llama3.2",
		Timeout:       2 * time.Minute,
		MaxConcurrent: 4,
	}
}
