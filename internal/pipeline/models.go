// Package pipeline generates the development-plan artifacts: project
// design, phased devplan, per-phase detailed steps, and the final handoff
// document. Each generator takes the previous stage's artifact and an LLM
// client; the Pipeline type chains them end to end.
package pipeline

import "encoding/json"

// Requirements is the structured output of the interview stage.
type Requirements struct {
	ProjectName  string   `json:"project_name"`
	Languages    []string `json:"languages"`
	Requirements string   `json:"requirements"`
	Frameworks   []string `json:"frameworks,omitempty"`
	APIs         []string `json:"apis,omitempty"`
}

// Design is the structured project design document.
type Design struct {
	ProjectName          string   `json:"project_name"`
	Objectives           []string `json:"objectives"`
	TechStack            []string `json:"tech_stack"`
	ArchitectureOverview string   `json:"architecture_overview,omitempty"`
	Dependencies         []string `json:"dependencies,omitempty"`
	Challenges           []string `json:"challenges,omitempty"`
	Mitigations          []string `json:"mitigations,omitempty"`
	// Complexity is the parsed rating (Low, Medium, High) when the model
	// provided one.
	Complexity      string `json:"complexity,omitempty"`
	EstimatedPhases int    `json:"estimated_phases,omitempty"`
	// RawResponse preserves the full markdown for design.md.
	RawResponse string `json:"raw_llm_response,omitempty"`
}

// Step is an actionable, numbered step within a phase (number "2.7").
type Step struct {
	Number      string   `json:"number"`
	Description string   `json:"description"`
	Details     []string `json:"details,omitempty"`
	Done        bool     `json:"done"`
}

// TaskGroup is a set of steps that touch related files and can be handed
// to one worker as a unit.
type TaskGroup struct {
	GroupNumber int    `json:"group_number"`
	Description string `json:"description"`
	// EstimatedFiles holds glob patterns for the files this group touches.
	EstimatedFiles []string `json:"estimated_files,omitempty"`
	Steps          []Step   `json:"steps,omitempty"`
}

// Phase is one development phase. Steps is the flat sequential form;
// TaskGroups is populated in grouped mode for parallel execution.
type Phase struct {
	Number      int         `json:"number"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Steps       []Step      `json:"steps"`
	TaskGroups  []TaskGroup `json:"task_groups,omitempty"`
}

// DevPlan is the complete development plan.
type DevPlan struct {
	ProjectName string  `json:"project_name"`
	Summary     string  `json:"summary,omitempty"`
	Phases      []Phase `json:"phases"`
}

// Handoff is the final handoff document plus its step summaries.
type Handoff struct {
	Content   string   `json:"content"`
	NextSteps []string `json:"next_steps"`
}

// GenerateOptions carries the per-stage LLM settings into a generator.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	// TaskGroupSize bounds tasks per group in grouped mode (default 5).
	TaskGroupSize int
	Grouping      Grouping
}

// DefaultTaskGroupSize is used when GenerateOptions leaves it zero.
const DefaultTaskGroupSize = 5

func (o GenerateOptions) taskGroupSize() int {
	if o.TaskGroupSize <= 0 {
		return DefaultTaskGroupSize
	}
	return o.TaskGroupSize
}

// Grouping selects how devplan tasks are organized.
type Grouping string

const (
	// GroupingFlat produces sequential steps.
	GroupingFlat Grouping = "flat"
	// GroupingGrouped produces task groups for parallel swarm execution.
	GroupingGrouped Grouping = "grouped"
)

// ToJSON renders an artifact as indented JSON for the session directory.
func ToJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// complete reports whether every step of the phase is done. Phases with
// no steps are never complete.
func (p Phase) complete() bool {
	if len(p.Steps) == 0 {
		return false
	}
	for _, s := range p.Steps {
		if !s.Done {
			return false
		}
	}
	return true
}

// started reports whether any step of the phase is done.
func (p Phase) started() bool {
	for _, s := range p.Steps {
		if s.Done {
			return true
		}
	}
	return false
}
