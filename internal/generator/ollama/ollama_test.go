package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/writespace/internal/generator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collect drains a chunk stream. It stops at the first error chunk and
// returns the text gathered so far along with the error.
func collect(chunks <-chan generator.Chunk) (string, error) {
	var sb strings.Builder
	for c := range chunks {
		if c.Err != nil {
			return sb.String(), c.Err
		}
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

// fakeOllama streams the given lines as NDJSON and records the last request.
func fakeOllama(t *testing.T, lines []string, captured *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if captured != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			fmt.Fprintln(w, l)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate_StreamsChunks(t *testing.T) {
	var captured chatRequest
	srv := fakeOllama(t, []string{
		`{"message":{"role":"assistant","content":"# Hello"},"done":false}`,
		``,
		`{"message":{"role":"assistant","content":" world"},"done":false}`,
		`{"message":{"role":"assistant","content":""},"done":true}`,
	}, &captured)

	g := New(generator.Config{BaseURL: srv.URL + "/", Model: "test-model"}, discardLogger())

	chunks, err := g.Generate(context.Background(), generator.Request{Prompt: "write a title"})
	require.NoError(t, err)

	text, err := collect(chunks)
	require.NoError(t, err)
	assert.Equal(t, "# Hello world", text)

	assert.Equal(t, "test-model", captured.Model)
	assert.True(t, captured.Stream)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, generator.SystemPrompt, captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "write a title", captured.Messages[1].Content)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	g := New(generator.Config{BaseURL: "http://127.0.0.1:1"}, discardLogger())

	_, err := g.Generate(context.Background(), generator.Request{Prompt: "  "})
	assert.Error(t, err)
}

func TestGenerate_BackendStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	g := New(generator.Config{BaseURL: srv.URL}, discardLogger())

	_, err := g.Generate(context.Background(), generator.Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "model not found")

	// The slot was given back.
	assert.Len(t, g.slots, 0)
}

func TestGenerate_ErrorLineEndsStream(t *testing.T) {
	srv := fakeOllama(t, []string{
		`{"message":{"role":"assistant","content":"partial"},"done":false}`,
		`{"error":"out of memory"}`,
		`{"message":{"role":"assistant","content":"never seen"},"done":false}`,
	}, nil)

	g := New(generator.Config{BaseURL: srv.URL}, discardLogger())

	chunks, err := g.Generate(context.Background(), generator.Request{Prompt: "hi"})
	require.NoError(t, err)

	text, err := collect(chunks)
	assert.Equal(t, "partial", text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestGenerate_MalformedLine(t *testing.T) {
	srv := fakeOllama(t, []string{`not json`}, nil)
	g := New(generator.Config{BaseURL: srv.URL}, discardLogger())

	chunks, err := g.Generate(context.Background(), generator.Request{Prompt: "hi"})
	require.NoError(t, err)

	_, err = collect(chunks)
	assert.ErrorContains(t, err, "decode chunk")
}

func TestGenerate_SlotsBoundConcurrency(t *testing.T) {
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"first"},"done":false}`)
		w.(http.Flusher).Flush()
		<-unblock
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()
	defer close(unblock)

	g := New(generator.Config{BaseURL: srv.URL, MaxConcurrent: 1}, discardLogger())

	first, err := g.Generate(context.Background(), generator.Request{Prompt: "one"})
	require.NoError(t, err)
	c := <-first
	require.NoError(t, c.Err)
	assert.Equal(t, "first", c.Text)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = g.Generate(ctx, generator.Request{Prompt: "two"})
	assert.True(t, errors.Is(err, generator.ErrBusy), "got %v", err)
}

func TestNew_Defaults(t *testing.T) {
	g := New(generator.Config{}, discardLogger())
	def := generator.DefaultConfig()

	assert.Equal(t, def.BaseURL, g.config.BaseURL)
	assert.Equal(t, def.Model, g.config.Model)
	assert.Equal(t, def.Timeout, g.config.Timeout)
	assert.Equal(t, def.MaxConcurrent, cap(g.slots))
}
