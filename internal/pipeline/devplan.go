package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/ralph/internal/extract"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
)

// DevPlanGenerator produces the high-level phased plan from a design.
type DevPlanGenerator struct {
	client llm.Client
	logger *logging.Logger
}

// NewDevPlanGenerator creates a devplan generator.
func NewDevPlanGenerator(client llm.Client, logger *logging.Logger) *DevPlanGenerator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &DevPlanGenerator{client: client, logger: logger.WithComponent("devplan")}
}

// Generate asks the model for a phased plan and parses it. Parsing is
// lenient: a plan with at least one phase always comes back.
func (g *DevPlanGenerator) Generate(ctx context.Context, design *Design, opts GenerateOptions) (*DevPlan, error) {
	prompt, err := render(devplanPromptTmpl, struct {
		Design        *Design
		Grouped       bool
		TaskGroupSize int
	}{Design: design, Grouped: opts.Grouping == GroupingGrouped, TaskGroupSize: opts.taskGroupSize()})
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

	var plan *DevPlan
	if opts.Grouping == GroupingGrouped {
		plan = ParseGroupedDevPlan(response, design.ProjectName)
	} else {
		plan = ParseDevPlan(response, design.ProjectName)
	}
	g.logger.Info("devplan generated", "project", design.ProjectName, "phases", len(plan.Phases))
	return plan, nil
}

// Phase header formats seen in model output, tried in order of
// specificity: numbered-bold, bold, plain, heading, bare numbered item.
var phasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\d+\.\s*\*\*\s*Phase\s+0*(\d+)\s*[:\-–—]\s*(.+?)\s*\*\*\s*$`),
	regexp.MustCompile(`(?i)^\*\*\s*Phase\s+0*(\d+)\s*[:\-–—]\s*(.+?)\s*\*\*\s*$`),
	regexp.MustCompile(`(?i)^Phase\s+0*(\d+)\s*[:\-–—]\s*(.+)$`),
	regexp.MustCompile(`(?i)^#{1,6}\s*Phase\s+0*(\d+)\s*[:\-–—]\s*(.+)$`),
	regexp.MustCompile(`(?i)^(\d+)\s*[\.)]\s*(.+)$`),
}

// Grouped-mode phase headers exclude the bare numbered form: task lines
// under groups would collide with it.
var groupedPhasePatterns = phasePatterns[:4]

var starsPattern = regexp.MustCompile(`\*+`)

func matchPhase(line string, patterns []*regexp.Regexp) (title string, ok bool) {
	for _, pat := range patterns {
		if m := pat.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[2]), true
		}
	}
	return "", false
}

// ParseDevPlan parses a flat-mode devplan response. Phases are renumbered
// sequentially in order of appearance, regardless of what numbers the
// model used. A "- Summary:" bullet becomes the phase description;
// otherwise the first prose lines after the header do.
func ParseDevPlan(response, projectName string) *DevPlan {
	if text, ok := extract.TextFromLogEntries(response); ok {
		response = text
	}

	var phases []Phase
	var current *Phase
	var description string
	nextNumber := 1

	flush := func() {
		if current == nil {
			return
		}
		current.Description = starsPattern.ReplaceAllString(strings.TrimSpace(description), "")
		phases = append(phases, *current)
	}

	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimSpace(line)

		if title, ok := matchPhase(stripped, phasePatterns); ok {
			flush()
			title = strings.TrimSpace(strings.TrimRight(title, "*"))
			if title == "" {
				title = fmt.Sprintf("Phase %d", nextNumber)
			}
			current = &Phase{Number: nextNumber, Title: title}
			nextNumber++
			description = ""
			continue
		}

		if current == nil {
			continue
		}

		if strings.HasPrefix(stripped, "-") {
			lower := strings.ToLower(stripped)
			if strings.HasPrefix(lower, "- summary:") {
				if _, after, ok := strings.Cut(stripped, ":"); ok {
					if s := strings.TrimSpace(after); s != "" {
						description = s
					}
				}
			}
			continue
		}

		if stripped != "" && !strings.HasPrefix(stripped, "#") && description == "" {
			description = stripped
		}
	}
	flush()

	if len(phases) == 0 {
		phases = append(phases, Phase{Number: 1, Title: "Implementation"})
	}

	return &DevPlan{
		ProjectName: projectName,
		Summary:     fmt.Sprintf("Development plan for %s with %d phases", projectName, len(phases)),
		Phases:      phases,
	}
}

// Group header formats, in precedence order: explicit bracketed file list,
// inline file list, bare group header.
var (
	groupPatternBracket = regexp.MustCompile(`(?i)^-?\s*\*\*?\s*Group\s+(\d+)\s*\*\*?\s*\[(?:estimated_files|files)\s*[:=]?\s*(.*?)\]\s*$`)
	groupPatternInline  = regexp.MustCompile(`(?i)^-?\s*\*\*?\s*Group\s+(\d+)\s*\*\*?\s*[:\-–—]?\s*(?:\[(?:estimated_files|files)\s*[:=]?\s*(.*?)\]|(?:files|estimated_files)\s*[:=]\s*(.*?))\s*$`)
	groupPatternSimple  = regexp.MustCompile(`(?i)^-?\s*\*\*?\s*Group\s+(\d+)\s*\*\*?\s*[:\-–—]?\s*(.*)?$`)

	fileSeparators = regexp.MustCompile(`[;|\\]+`)
	jsonBlock      = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")
)

func matchGroup(line string) (number int, files string, ok bool) {
	if m := groupPatternBracket.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, strings.TrimSpace(m[2]), true
	}
	if m := groupPatternInline.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		fs := m[2]
		if fs == "" {
			fs = m[3]
		}
		return n, strings.TrimSpace(fs), true
	}
	if m := groupPatternSimple.FindStringSubmatch(line); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, "", true
	}
	return 0, "", false
}

// parseFilePatterns normalizes a file list (";", "|", and "\" all act as
// separators) and keeps only patterns that compile as globs.
func parseFilePatterns(s string) []string {
	if s == "" {
		return nil
	}
	s = fileSeparators.ReplaceAllString(s, ",")
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, err := glob.Compile(f); err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// groupedJSONPlan is the machine-readable block grouped prompts ask for.
type groupedJSONPlan struct {
	Phases []struct {
		Title       string `json:"title"`
		Name        string `json:"name"`
		Description string `json:"description"`
		TaskGroups  []struct {
			Description    string   `json:"description"`
			EstimatedFiles []string `json:"estimated_files"`
			Files          []string `json:"files"`
			Steps          []any    `json:"steps"`
		} `json:"task_groups"`
	} `json:"phases"`
}

// ParseGroupedDevPlan parses a grouped-mode devplan response. A ```json
// block takes precedence when present and valid; otherwise the markdown
// phase/group structure is parsed line by line.
func ParseGroupedDevPlan(response, projectName string) *DevPlan {
	if text, ok := extract.TextFromLogEntries(response); ok {
		response = text
	}

	if plan := parseGroupedJSON(response, projectName); plan != nil {
		return plan
	}

	var phases []Phase
	var current *Phase
	var groups []TaskGroup
	var group *TaskGroup
	var tasks []string
	var description string
	nextNumber := 1

	flushGroup := func() {
		if group == nil {
			return
		}
		phaseNumber := 1
		if current != nil {
			phaseNumber = current.Number
		}
		for i, t := range tasks {
			group.Steps = append(group.Steps, Step{
				Number:      fmt.Sprintf("%d.%d", phaseNumber, i+1),
				Description: t,
			})
		}
		groups = append(groups, *group)
		group = nil
		tasks = nil
	}

	flushPhase := func() {
		if current == nil {
			return
		}
		flushGroup()
		current.Description = starsPattern.ReplaceAllString(strings.TrimSpace(description), "")
		current.TaskGroups = groups
		phases = append(phases, *current)
		groups = nil
	}

	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimSpace(line)

		if title, ok := matchPhase(stripped, groupedPhasePatterns); ok {
			flushPhase()
			title = strings.TrimSpace(strings.TrimRight(title, "*"))
			if title == "" {
				title = fmt.Sprintf("Phase %d", nextNumber)
			}
			current = &Phase{Number: nextNumber, Title: title}
			nextNumber++
			description = ""
			continue
		}

		if num, files, ok := matchGroup(stripped); ok {
			if current == nil {
				current = &Phase{Number: nextNumber, Title: "Phase 1"}
				nextNumber++
			}
			flushGroup()
			group = &TaskGroup{
				GroupNumber:    num,
				Description:    fmt.Sprintf("Task group %d", num),
				EstimatedFiles: parseFilePatterns(files),
			}
			continue
		}

		if strings.HasPrefix(stripped, "-") && group != nil {
			task := strings.TrimSpace(stripped[1:])
			if task != "" && !strings.HasPrefix(task, "**Group") {
				tasks = append(tasks, task)
			}
			continue
		}

		if stripped != "" && current != nil && group == nil && !strings.HasPrefix(stripped, "#") {
			if description == "" {
				description = stripped
			} else {
				description += " " + stripped
			}
		}
	}
	flushPhase()

	if len(phases) == 0 {
		phases = append(phases, Phase{Number: 1, Title: "Implementation"})
	}

	return &DevPlan{
		ProjectName: projectName,
		Summary:     fmt.Sprintf("Development plan for %s with %d phases (grouped mode)", projectName, len(phases)),
		Phases:      phases,
	}
}

func parseGroupedJSON(response, projectName string) *DevPlan {
	m := jsonBlock.FindStringSubmatch(response)
	if m == nil {
		return nil
	}
	var block groupedJSONPlan
	if err := json.Unmarshal([]byte(m[1]), &block); err != nil {
		return nil
	}

	var phases []Phase
	for pi, p := range block.Phases {
		title := p.Title
		if title == "" {
			title = p.Name
		}
		if title == "" {
			title = fmt.Sprintf("Phase %d", pi+1)
		}

		var taskGroups []TaskGroup
		for gi, g := range p.TaskGroups {
			files := g.EstimatedFiles
			if len(files) == 0 {
				files = g.Files
			}

			var steps []Step
			for si, s := range g.Steps {
				var desc string
				switch v := s.(type) {
				case string:
					desc = v
				case map[string]any:
					if d, ok := v["description"].(string); ok {
						desc = d
					} else if t, ok := v["title"].(string); ok {
						desc = t
					} else {
						desc = fmt.Sprintf("%v", v)
					}
				default:
					desc = fmt.Sprintf("%v", v)
				}
				steps = append(steps, Step{
					Number:      fmt.Sprintf("%d.%d", pi+1, si+1),
					Description: desc,
				})
			}

			groupDesc := g.Description
			if groupDesc == "" {
				groupDesc = fmt.Sprintf("Task group %d", gi+1)
			}
			taskGroups = append(taskGroups, TaskGroup{
				GroupNumber:    gi + 1,
				Description:    groupDesc,
				EstimatedFiles: files,
				Steps:          steps,
			})
		}

		phases = append(phases, Phase{
			Number:      pi + 1,
			Title:       title,
			Description: p.Description,
			TaskGroups:  taskGroups,
		})
	}

	if len(phases) == 0 {
		phases = append(phases, Phase{Number: 1, Title: "Implementation"})
	}
	return &DevPlan{
		ProjectName: projectName,
		Summary:     fmt.Sprintf("Development plan for %s with %d phases (grouped mode - from JSON)", projectName, len(phases)),
		Phases:      phases,
	}
}
