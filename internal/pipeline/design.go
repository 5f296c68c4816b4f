package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/Iron-Ham/ralph/internal/extract"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
)

// DesignGenerator produces a structured project design from requirements.
type DesignGenerator struct {
	client llm.Client
	logger *logging.Logger
}

// NewDesignGenerator creates a design generator.
func NewDesignGenerator(client llm.Client, logger *logging.Logger) *DesignGenerator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &DesignGenerator{client: client, logger: logger.WithComponent("design")}
}

// Generate asks the model for a design document and parses its sections.
// An LLM failure is returned; an unparseable response still yields a
// Design with fallback section values so the pipeline can continue.
func (g *DesignGenerator) Generate(ctx context.Context, req Requirements, opts GenerateOptions) (*Design, error) {
	prompt, err := render(designPromptTmpl, req)
	if err != nil {
		return nil, err
	}

	response, err := g.client.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	design := ParseDesign(response, req.ProjectName)
	g.logger.Info("design generated",
		"project", req.ProjectName,
		"objectives", len(design.Objectives),
		"complexity", design.Complexity)
	return design, nil
}

var phaseCountPattern = regexp.MustCompile(`\d+`)

// ParseDesign splits a markdown design response into a Design. Section
// parsing is shared with the extract package; the complexity section is
// design-specific.
func ParseDesign(response, projectName string) *Design {
	sections := extract.ParseDesignSections(response)

	design := &Design{
		ProjectName:          projectName,
		Objectives:           sections.Objectives,
		TechStack:            sections.TechStack,
		ArchitectureOverview: sections.ArchitectureOverview,
		Dependencies:         sections.Dependencies,
		Challenges:           sections.Challenges,
		Mitigations:          sections.Mitigations,
		RawResponse:          response,
	}

	design.Complexity, design.EstimatedPhases = parseComplexity(response)

	if len(design.Objectives) == 0 {
		design.Objectives = []string{"No objectives parsed"}
	}
	if len(design.TechStack) == 0 {
		design.TechStack = []string{"No tech stack parsed"}
	}
	if response == "" {
		design.ArchitectureOverview = "ERROR: LLM returned empty response."
	}
	return design
}

// parseComplexity reads the complexity section bullets:
//
//   - Complexity Rating: Medium
//   - Estimated Phases: 5
func parseComplexity(response string) (rating string, phases int) {
	inSection := false
	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimSpace(line)
		lower := strings.ToLower(stripped)

		if strings.HasPrefix(stripped, "#") {
			inSection = strings.Contains(lower, "complexity")
			continue
		}
		if !inSection || !strings.HasPrefix(stripped, "-") {
			continue
		}

		content := strings.TrimSpace(stripped[1:])
		lowerContent := strings.ToLower(content)
		switch {
		case strings.Contains(lowerContent, "complexity rating"):
			if _, after, ok := strings.Cut(content, ":"); ok {
				rating = strings.TrimSpace(after)
			}
		case strings.Contains(lowerContent, "estimated phases"):
			if _, after, ok := strings.Cut(content, ":"); ok {
				if m := phaseCountPattern.FindString(after); m != "" {
					phases, _ = strconv.Atoi(m)
				}
			}
		}
	}
	return rating, phases
}
