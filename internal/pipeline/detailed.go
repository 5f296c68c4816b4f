package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	"github.com/Iron-Ham/ralph/internal/extract"
	"github.com/Iron-Ham/ralph/internal/hivemind"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
)

// PhaseResult reports one detailed phase back to the progress callback.
type PhaseResult struct {
	Phase         Phase
	ResponseChars int
}

// DetailedGenerator expands each devplan phase into numbered steps. Phases
// run in parallel under the shared limiter; swarm generation is used when
// a hivemind is configured.
type DetailedGenerator struct {
	client  llm.Client
	limiter *concurrency.Limiter
	swarm   *hivemind.Swarm
	// DroneCount enables hivemind generation when > 1.
	DroneCount      int
	logger          *logging.Logger
	onPhaseComplete func(PhaseResult)
}

// NewDetailedGenerator creates a detailed-steps generator.
func NewDetailedGenerator(client llm.Client, limiter *concurrency.Limiter, logger *logging.Logger) *DetailedGenerator {
	if limiter == nil {
		limiter = concurrency.NewLimiter(concurrency.DefaultLimit)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	// The swarm runs unbounded: each phase holds a limiter slot while its
	// drones run, so sharing the limiter would let phases starve their own
	// drones once in-flight phases reach the limit.
	return &DetailedGenerator{
		client:  client,
		limiter: limiter,
		swarm:   hivemind.New(client, nil, logger),
		logger:  logger.WithComponent("detailed"),
	}
}

// OnPhaseComplete registers a callback fired as each phase finishes.
func (g *DetailedGenerator) OnPhaseComplete(fn func(PhaseResult)) {
	g.onPhaseComplete = fn
}

// Generate details every phase of the plan. Duplicate phase numbers are
// dropped (first occurrence wins) and the output preserves the input
// phase order even though phases complete out of order.
func (g *DetailedGenerator) Generate(ctx context.Context, plan *DevPlan, design *Design, opts GenerateOptions) (*DevPlan, error) {
	seen := make(map[int]bool)
	var unique []Phase
	for _, p := range plan.Phases {
		if seen[p.Number] {
			continue
		}
		seen[p.Number] = true
		unique = append(unique, p)
	}

	fns := make([]func(context.Context) (Phase, error), len(unique))
	for i, phase := range unique {
		fns[i] = func(ctx context.Context) (Phase, error) {
			detailed, chars, err := g.detailPhase(ctx, phase, plan.ProjectName, design.TechStack, opts)
			if err != nil {
				return Phase{}, err
			}
			if g.onPhaseComplete != nil {
				g.onPhaseComplete(PhaseResult{Phase: detailed, ResponseChars: chars})
			}
			return detailed, nil
		}
	}

	detailed, err := concurrency.Gather(ctx, g.limiter, fns)
	if err != nil {
		return nil, err
	}

	return &DevPlan{
		ProjectName: plan.ProjectName,
		Summary:     plan.Summary,
		Phases:      detailed,
	}, nil
}

func (g *DetailedGenerator) detailPhase(ctx context.Context, phase Phase, projectName string, techStack []string, opts GenerateOptions) (Phase, int, error) {
	prompt, err := render(detailedPromptTmpl, struct {
		ProjectName      string
		TechStack        []string
		PhaseNumber      int
		PhaseTitle       string
		PhaseDescription string
		Grouped          bool
		TaskGroupSize    int
	}{
		ProjectName:      projectName,
		TechStack:        techStack,
		PhaseNumber:      phase.Number,
		PhaseTitle:       phase.Title,
		PhaseDescription: phase.Description,
		Grouped:          opts.Grouping == GroupingGrouped,
		TaskGroupSize:    opts.taskGroupSize(),
	})
	if err != nil {
		return Phase{}, 0, err
	}

	req := llm.Request{Prompt: prompt, Temperature: opts.Temperature, MaxTokens: opts.MaxTokens}

	var response string
	if g.DroneCount > 1 {
		response, err = g.swarm.Run(ctx, req, g.DroneCount)
	} else {
		response, err = g.client.Generate(ctx, req)
	}
	if err != nil {
		return Phase{}, 0, err
	}
	used := response

	var steps []Step
	var taskGroups []TaskGroup
	if opts.Grouping == GroupingGrouped {
		taskGroups = ParseTaskGroups(response, phase.Number)
		for _, group := range taskGroups {
			steps = append(steps, group.Steps...)
		}
	} else {
		steps = parseSteps(response, phase.Number)
	}

	// A blank or unparseable response gets one strict-format retry before
	// the placeholder kicks in.
	if strings.TrimSpace(response) == "" || len(steps) == 0 {
		if retried, retriedResponse := g.retryStrict(ctx, phase, projectName, opts); len(retried) > 0 {
			steps = retried
			used = retriedResponse
		}
	}
	if len(steps) == 0 {
		steps = []Step{{
			Number:      fmt.Sprintf("%d.1", phase.Number),
			Description: "Implement phase requirements",
		}}
	}

	detailed := Phase{
		Number:      phase.Number,
		Title:       phase.Title,
		Description: phase.Description,
		Steps:       steps,
	}
	if opts.Grouping == GroupingGrouped {
		detailed.TaskGroups = taskGroups
	}
	g.logger.Debug("phase detailed", "phase", phase.Number, "steps", len(steps))
	return detailed, len(used), nil
}

func (g *DetailedGenerator) retryStrict(ctx context.Context, phase Phase, projectName string, opts GenerateOptions) ([]Step, string) {
	prompt, err := render(strictStepsPromptTmpl, struct {
		ProjectName string
		PhaseNumber int
		PhaseTitle  string
	}{ProjectName: projectName, PhaseNumber: phase.Number, PhaseTitle: phase.Title})
	if err != nil {
		return nil, ""
	}

	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1200
	}
	response, err := g.client.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		g.logger.Warn("strict re-prompt failed", "phase", phase.Number, "error", err)
		return nil, ""
	}
	return parseSteps(response, phase.Number), response
}

func parseSteps(response string, phaseNumber int) []Step {
	parsed := extract.PhaseSteps(response, phaseNumber)
	steps := make([]Step, len(parsed))
	for i, s := range parsed {
		steps[i] = Step{Number: s.Number, Description: s.Description, Details: s.Details}
	}
	return steps
}

// Detailed-mode group headers require the explicit bracketed file list.
var detailedGroupPattern = regexp.MustCompile(`(?i)^-?\s*\*\*\s*Group\s+(\d+)\s*\*\*\s*\[estimated_files:\s*(.*?)\]`)

// ParseTaskGroups parses the grouped detailed format: group headers with
// file lists, each followed by that phase's numbered steps. When no group
// headers parse, the flat steps land in a single fallback group.
func ParseTaskGroups(response string, phaseNumber int) []TaskGroup {
	stepPattern := regexp.MustCompile(fmt.Sprintf(`(?i)^%d\.(\d+):?\s*(.+)$`, phaseNumber))

	var groups []TaskGroup
	var group *TaskGroup
	var steps []Step
	var step *Step

	flushStep := func() {
		if step != nil {
			steps = append(steps, *step)
			step = nil
		}
	}
	flushGroup := func() {
		flushStep()
		if group != nil && len(steps) > 0 {
			group.Steps = steps
			groups = append(groups, *group)
		}
		group = nil
		steps = nil
	}

	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimSpace(line)

		if m := detailedGroupPattern.FindStringSubmatch(stripped); m != nil {
			flushGroup()
			num, _ := strconv.Atoi(m[1])
			group = &TaskGroup{
				GroupNumber:    num,
				Description:    fmt.Sprintf("Task group %d", num),
				EstimatedFiles: parseFilePatterns(m[2]),
			}
			continue
		}

		if m := stepPattern.FindStringSubmatch(stripped); m != nil {
			flushStep()
			step = &Step{
				Number:      fmt.Sprintf("%d.%s", phaseNumber, m[1]),
				Description: strings.TrimSpace(m[2]),
			}
			continue
		}

		if strings.HasPrefix(stripped, "-") && step != nil {
			if detail := strings.TrimSpace(stripped[1:]); detail != "" {
				step.Details = append(step.Details, detail)
			}
		}
	}
	flushGroup()

	if len(groups) == 0 {
		if flat := parseSteps(response, phaseNumber); len(flat) > 0 {
			groups = append(groups, TaskGroup{
				GroupNumber: 1,
				Description: "All tasks for this phase",
				Steps:       flat,
			})
		}
	}
	return groups
}
