package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

// DefaultTimeout bounds a single CLI generation call.
const DefaultTimeout = 300 * time.Second

// commandRunner executes a command with the given stdin and returns stdout
// and stderr. Injectable for tests.
type commandRunner func(ctx context.Context, stdin string, name string, args ...string) (stdout, stderr []byte, err error)

func defaultRunner(ctx context.Context, stdin string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return out.Bytes(), errBuf.Bytes(), err
}

// OpenCodeClient runs the opencode CLI as a subprocess for each call.
// The prompt goes in on stdin and the JSON response comes back on stdout.
type OpenCodeClient struct {
	provider string
	model    string
	timeout  time.Duration
	run      commandRunner
}

// OpenCodeOption configures an OpenCodeClient.
type OpenCodeOption func(*OpenCodeClient)

// WithTimeout sets the per-call timeout. Zero or negative keeps the
// default.
func WithTimeout(d time.Duration) OpenCodeOption {
	return func(c *OpenCodeClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func withRunner(run commandRunner) OpenCodeOption {
	return func(c *OpenCodeClient) { c.run = run }
}

// NewOpenCodeClient creates a CLI-backed client. provider and model may be
// empty, in which case opencode's own defaults apply.
func NewOpenCodeClient(provider, model string, opts ...OpenCodeOption) *OpenCodeClient {
	c := &OpenCodeClient{
		provider: provider,
		model:    model,
		timeout:  DefaultTimeout,
		run:      defaultRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenCodeClient) Name() string {
	return "opencode:" + buildModel(c.provider, c.model)
}

func (c *OpenCodeClient) args(req Request) []string {
	args := []string{"run", "--format", "json"}
	model := req.Model
	if model == "" {
		model = buildModel(c.provider, c.model)
	} else {
		model = buildModel(c.provider, model)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	return args
}

func (c *OpenCodeClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stdout, stderr, err := c.run(ctx, req.fullPrompt(), "opencode", c.args(req)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ralpherrors.NewTimeoutError("opencode generation", c.timeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", ralpherrors.NewTransportError(
				"opencode command not found, ensure opencode is installed and in PATH",
				ralpherrors.ErrBackendUnavailable,
			).WithBackend("opencode")
		}
		return "", ralpherrors.NewTransportError(fmt.Sprintf("opencode failed: %v", err), ralpherrors.ErrBackendUnavailable).
			WithBackend("opencode").
			WithModel(buildModel(c.provider, c.model)).
			WithStderr(truncateStderr(string(stderr)))
	}

	text := extractText(strings.TrimSpace(string(stdout)))
	if strings.TrimSpace(text) == "" {
		return "", ralpherrors.NewTransportError("opencode returned no text", ralpherrors.ErrEmptyResponse).
			WithBackend("opencode").
			WithModel(buildModel(c.provider, c.model))
	}
	return text, nil
}

// Stderr is noisy on failures; keep enough to diagnose.
const maxStderr = 500

func truncateStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[:maxStderr]
	}
	return s
}

// GenerateStream falls back to a single chunk: the opencode CLI has no
// usable token streaming in run mode.
func (c *OpenCodeClient) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	return singleChunkStream(ctx, c, req)
}
