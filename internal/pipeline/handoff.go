package pipeline

import "fmt"

// HandoffAnchors are the sections a handoff document always carries.
var HandoffAnchors = []string{"QUICK_STATUS", "DEV_INSTRUCTIONS", "TOKEN_RULES", "HANDOFF_NOTES"}

// HandoffGenerator renders the final handoff document from a devplan's
// completion state. It makes no LLM calls.
type HandoffGenerator struct {
	// Blockers overrides the default "None known" blocker note.
	Blockers string
}

type nextStep struct {
	Number      string
	Title       string
	Description string
}

// Generate builds the handoff document. Next steps are capped at
// taskGroupSize so the receiving agent gets one work unit, not the whole
// backlog.
func (g *HandoffGenerator) Generate(plan *DevPlan, taskGroupSize int) (*Handoff, error) {
	if taskGroupSize <= 0 {
		taskGroupSize = DefaultTaskGroupSize
	}

	next := nextSteps(plan.Phases, taskGroupSize)

	currentNumber := "None"
	currentName := "No active phase"
	if phase, ok := inProgressPhase(plan.Phases); ok {
		currentNumber = fmt.Sprintf("%d", phase.Number)
		currentName = phase.Title
	}

	nextTaskID := "None"
	nextTaskDescription := "No remaining steps"
	if len(next) > 0 {
		nextTaskID = next[0].Number
		nextTaskDescription = next[0].Description
	}

	blockers := g.Blockers
	if blockers == "" {
		blockers = "None known"
	}

	content, err := render(handoffTmpl, struct {
		ProjectName         string
		CurrentPhaseNumber  string
		CurrentPhaseName    string
		NextTaskID          string
		NextTaskDescription string
		Blockers            string
		NextSteps           []nextStep
	}{
		ProjectName:         plan.ProjectName,
		CurrentPhaseNumber:  currentNumber,
		CurrentPhaseName:    currentName,
		NextTaskID:          nextTaskID,
		NextTaskDescription: nextTaskDescription,
		Blockers:            blockers,
		NextSteps:           next,
	})
	if err != nil {
		return nil, err
	}
	content = EnsureAnchors(content, HandoffAnchors)

	summaries := make([]string, len(next))
	for i, s := range next {
		summaries[i] = fmt.Sprintf("%s: %s", s.Number, s.Title)
	}
	return &Handoff{Content: content, NextSteps: summaries}, nil
}

// inProgressPhase finds the first phase that is started but not complete.
func inProgressPhase(phases []Phase) (Phase, bool) {
	for _, p := range phases {
		if !p.complete() && p.started() {
			return p, true
		}
	}
	return Phase{}, false
}

// nextSteps collects the first limit undone steps across all phases in
// order. Titles are the step description truncated to 80 chars.
func nextSteps(phases []Phase, limit int) []nextStep {
	var out []nextStep
	for _, phase := range phases {
		for _, step := range phase.Steps {
			if step.Done {
				continue
			}
			title := step.Description
			if len(title) > 80 {
				title = title[:80]
			}
			out = append(out, nextStep{
				Number:      step.Number,
				Title:       title,
				Description: step.Description,
			})
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}
