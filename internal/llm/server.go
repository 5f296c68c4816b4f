package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

// ServerClient talks to a persistent opencode server over HTTP. This
// avoids the per-call subprocess startup cost when many generations run
// back to back.
type ServerClient struct {
	url      string
	provider string
	model    string
	timeout  time.Duration
	http     *http.Client
}

type serverPayload struct {
	Prompt string `json:"prompt"`
	Format string `json:"format"`
	Model  string `json:"model,omitempty"`
}

// NewServerClient creates an HTTP-backed client for the given server URL.
func NewServerClient(url, provider, model string, timeout time.Duration) *ServerClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ServerClient{
		url:      url,
		provider: provider,
		model:    model,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *ServerClient) Name() string {
	return "opencode-server:" + buildModel(c.provider, c.model)
}

func (c *ServerClient) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	payload := serverPayload{
		Prompt: req.fullPrompt(),
		Format: "json",
		Model:  buildModel(c.provider, model),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", ralpherrors.Wrap(err, "encoding server request")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", ralpherrors.Wrap(err, "building server request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ralpherrors.NewTimeoutError("server generation", c.timeout)
		}
		return "", ralpherrors.NewTransportError("server request failed", err).
			WithBackend("server").
			WithModel(payload.Model)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ralpherrors.NewTransportError("reading server response", err).
			WithBackend("server")
	}

	if resp.StatusCode != http.StatusOK {
		return "", ralpherrors.NewTransportError(
			fmt.Sprintf("server returned status %d", resp.StatusCode),
			ralpherrors.ErrBackendUnavailable,
		).WithBackend("server").WithStderr(truncateStderr(string(respBody)))
	}

	text := extractText(strings.TrimSpace(string(respBody)))
	if strings.TrimSpace(text) == "" {
		return "", ralpherrors.NewTransportError("server returned no text", ralpherrors.ErrEmptyResponse).
			WithBackend("server").
			WithModel(payload.Model)
	}
	return text, nil
}

func (c *ServerClient) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	return singleChunkStream(ctx, c, req)
}
