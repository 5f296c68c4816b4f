package llm

import (
	"context"
	"strings"

	genai "google.golang.org/genai"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

// GeminiClient calls the Gemini API through the official genai client.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

// NewGeminiClient creates a Gemini-backed client. The API key comes from
// the environment (GEMINI_API_KEY / GOOGLE_API_KEY), which is how the
// genai client resolves credentials for the Gemini API backend.
func NewGeminiClient(ctx context.Context, model string) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, ralpherrors.NewTransportError("creating gemini client", err).
			WithBackend("gemini").
			WithRetryable(false)
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (c *GeminiClient) Name() string { return "gemini:" + c.model }

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.Temperature > 0 {
		temp := float32(req.Temperature)
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}},
		cfg,
	)
	if err != nil {
		return "", ralpherrors.NewTransportError("gemini generation failed", err).
			WithBackend("gemini").
			WithModel(model)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ralpherrors.NewTransportError("gemini returned no candidates", ralpherrors.ErrEmptyResponse).
			WithBackend("gemini").
			WithModel(model)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", ralpherrors.NewTransportError("gemini returned empty text", ralpherrors.ErrEmptyResponse).
			WithBackend("gemini").
			WithModel(model)
	}
	return text, nil
}

func (c *GeminiClient) GenerateStream(ctx context.Context, req Request) (<-chan Chunk, error) {
	return singleChunkStream(ctx, c, req)
}
