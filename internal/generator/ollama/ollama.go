// Package ollama implements generator.Generator against Ollama's HTTP chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/writespace/internal/generator"
)

// compile-time check that *Generator implements generator.Generator
var _ generator.Generator = (*Generator)(nil)

// Generator streams completions from an Ollama server.
//
// SLOTS:
// slots is a buffered channel used as a counting semaphore. A generation takes
// a slot before calling the backend and gives it back when its stream ends,
// so at most MaxConcurrent generations hit the model at once.
type Generator struct {
	config generator.Config
	client *http.Client
	slots  chan struct{}
	logger *slog.Logger
}

// New creates a Generator. Zero fields in cfg fall back to generator.DefaultConfig.
func New(cfg generator.Config, logger *slog.Logger) *Generator {
	def := generator.DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}

	return &Generator{
		config: cfg,
		// Each call is bounded by the context deadline set in Generate.
		client: &http.Client{},
		slots:  make(chan struct{}, cfg.MaxConcurrent),
		logger: logger,
	}
}

// --- Ollama API types ---

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error,omitempty"`
}

// Generate sends the prompt with the fixed system prompt and streams the reply.
func (g *Generator) Generate(ctx context.Context, req generator.Request) (<-chan generator.Chunk, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("ollama: prompt must not be empty")
	}

	// Take a slot, or give up when the caller goes away.
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", generator.ErrBusy, ctx.Err())
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	release := func() {
		cancel()
		<-g.slots
	}

	body, err := json.Marshal(chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: generator.SystemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		Stream: true,
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		release()
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		release()
		return nil, fmt.Errorf("ollama: send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		release()
		return nil, fmt.Errorf("ollama: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	g.logger.Debug("generation started", slog.String("model", g.config.Model))

	ch := make(chan generator.Chunk)
	go func() {
		defer release()
		defer close(ch)
		defer resp.Body.Close()

		send := func(c generator.Chunk) bool {
			select {
			case ch <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			var cr chatResponse
			if err := json.Unmarshal(line, &cr); err != nil {
				send(generator.Chunk{Err: fmt.Errorf("ollama: decode chunk: %w", err)})
				return
			}
			if cr.Error != "" {
				send(generator.Chunk{Err: fmt.Errorf("ollama: %s", cr.Error)})
				return
			}
			if cr.Message.Content != "" {
				if !send(generator.Chunk{Text: cr.Message.Content}) {
					return
				}
			}
			if cr.Done {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			send(generator.Chunk{Err: fmt.Errorf("ollama: read response: %w", err)})
		}
	}()

	return ch, nil
}
