package llm

import (
	"context"
	"fmt"
	"time"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

// Config selects and configures a transport.
type Config struct {
	// Backend is one of "opencode", "server", or "gemini". Empty defaults
	// to "opencode".
	Backend string
	// Provider qualifies the model for opencode backends ("anthropic",
	// "openai", ...).
	Provider string
	// Model is the model name, optionally already provider-qualified.
	Model string
	// ServerURL is required for the "server" backend.
	ServerURL string
	// Timeout bounds a single generation call. Zero uses DefaultTimeout.
	Timeout time.Duration
	// CacheSize enables the LRU response cache when positive.
	CacheSize int
}

// NewFromConfig builds a Client for the configured backend, wrapping it in
// a response cache when one is configured.
func NewFromConfig(ctx context.Context, cfg Config) (Client, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "opencode"
	}

	var client Client
	switch backend {
	case "opencode":
		client = NewOpenCodeClient(cfg.Provider, cfg.Model, WithTimeout(cfg.Timeout))
	case "server":
		if cfg.ServerURL == "" {
			return nil, ralpherrors.NewValidationError("server backend requires a server URL")
		}
		client = NewServerClient(cfg.ServerURL, cfg.Provider, cfg.Model, cfg.Timeout)
	case "gemini":
		var err error
		client, err = NewGeminiClient(ctx, cfg.Model)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ralpherrors.ErrUnknownBackend, backend)
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCachedClient(client, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		client = cached
	}
	return client, nil
}
