// Package llm provides the model client used by every pipeline stage.
//
// A Client sends one prompt and returns one completion. Three transports
// are provided: the opencode CLI as a subprocess, a persistent opencode
// HTTP server, and the Gemini API. The pipeline only sees the Client
// interface, so transports are swappable from config.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Request describes a single generation call.
type Request struct {
	// System is the system prompt for the call. Transports that cannot
	// carry a separate system message prepend it to the prompt.
	System string
	// Prompt is the user content.
	Prompt string
	// Model overrides the transport's configured model when non-empty.
	Model string
	// Temperature in [0, 2]. Transports without temperature control
	// ignore it.
	Temperature float64
	// MaxTokens caps the completion length. Zero means transport default.
	MaxTokens int
}

// Chunk is one piece of a streamed completion. The stream channel is
// closed after the final chunk; a chunk with a non-nil Err terminates
// the stream.
type Chunk struct {
	Text string
	Err  error
}

// Client generates completions.
type Client interface {
	// Generate sends a request and returns the full completion text.
	Generate(ctx context.Context, req Request) (string, error)
	// GenerateStream sends a request and returns a channel of chunks.
	// The channel is closed when generation finishes or fails.
	GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error)
	// Name identifies the transport and model for logging.
	Name() string
}

// fullPrompt merges system and user content for transports that take a
// single prompt string.
func (r Request) fullPrompt() string {
	if r.System == "" {
		return r.Prompt
	}
	return r.System + "\n\n" + r.Prompt
}

// singleChunkStream adapts a blocking Generate call to the streaming
// interface for transports without native streaming: the full completion
// arrives as one chunk.
func singleChunkStream(ctx context.Context, c Client, req Request) (<-chan Chunk, error) {
	ch := make(chan Chunk, 1)
	go func() {
		defer close(ch)
		text, err := c.Generate(ctx, req)
		if err != nil {
			ch <- Chunk{Err: err}
			return
		}
		ch <- Chunk{Text: text}
	}()
	return ch, nil
}

// Collect drains a chunk stream into the full completion text.
func Collect(stream <-chan Chunk) (string, error) {
	var b strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return b.String(), chunk.Err
		}
		b.WriteString(chunk.Text)
	}
	return b.String(), nil
}

// extractText pulls the completion text out of an opencode JSON response.
// Several shapes are seen in the wild; unknown shapes and non-JSON
// responses pass through as-is.
func extractText(response string) string {
	if response == "" {
		return ""
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return response
	}

	if text, ok := data["text"].(string); ok {
		return text
	}
	if content, ok := data["content"].(string); ok {
		return content
	}
	if msg, ok := data["message"].(map[string]any); ok {
		if content, ok := msg["content"].(string); ok {
			return content
		}
		return ""
	}
	if choices, ok := data["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if msg, ok := choice["message"].(map[string]any); ok {
				if content, ok := msg["content"].(string); ok {
					return content
				}
				return ""
			}
		}
	}

	return response
}

// buildModel combines provider and model into the provider/model form the
// opencode CLI expects. A model that already carries a provider wins.
func buildModel(provider, model string) string {
	if model == "" {
		return ""
	}
	if strings.Contains(model, "/") || provider == "" {
		return model
	}
	return provider + "/" + model
}
