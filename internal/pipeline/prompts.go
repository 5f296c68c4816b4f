package pipeline

import (
	"strings"
	"text/template"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

// Prompt templates for the generator stages. text/template keeps them
// data-driven without pulling prompt text into the generator logic.

var promptFuncs = template.FuncMap{"join": strings.Join}

var designPromptTmpl = template.Must(template.New("design").Funcs(promptFuncs).Parse(
	`You are a senior software architect. Produce a project design document
in markdown for the following project.

Project: {{.ProjectName}}
Languages: {{join .Languages ", "}}
{{- if .Frameworks}}
Frameworks: {{join .Frameworks ", "}}
{{- end}}
{{- if .APIs}}
External APIs and services: {{join .APIs ", "}}
{{- end}}

Requirements:
{{.Requirements}}

Use exactly these markdown sections:
## Objectives
- one objective per bullet
## Technology Stack
- one technology per bullet
## Architecture Overview
Prose describing the architecture.
## Dependencies
- one dependency per bullet
## Challenges and Risks
- one challenge per bullet; prefix mitigations with "Mitigation:"
## Complexity Assessment
- Complexity Rating: Low, Medium, or High
- Estimated Phases: a number`))

var devplanPromptTmpl = template.Must(template.New("devplan").Parse(
	`You are planning the implementation of {{.Design.ProjectName}}.

Architecture:
{{.Design.ArchitectureOverview}}

Objectives:
{{- range .Design.Objectives}}
- {{.}}
{{- end}}

Technology stack:
{{- range .Design.TechStack}}
- {{.}}
{{- end}}

Produce a high-level development plan as a numbered list of phases.
Format each phase exactly as:
**Phase N: Title**
- Summary: one-line summary of the phase
- major deliverable
- major deliverable
{{if .Grouped}}
Within each phase, organize work into task groups of at most
{{.TaskGroupSize}} related tasks. Format each group as:
- **Group N** [estimated_files: glob, glob]
  - task
  - task
Groups must touch disjoint files so they can run in parallel.
{{end}}
Aim for 3 to 8 phases ordered by dependency.`))

var detailedPromptTmpl = template.Must(template.New("detailed").Funcs(promptFuncs).Parse(
	`You are generating a detailed implementation plan for a software project.
Project: {{.ProjectName}}
{{- if .TechStack}}
Technology stack: {{join .TechStack ", "}}
{{- end}}
Phase {{.PhaseNumber}}: {{.PhaseTitle}}
{{- if .PhaseDescription}}
{{.PhaseDescription}}
{{- end}}

Break this phase into concrete implementation steps. Use exactly:
{{.PhaseNumber}}.1: <short step title>
- <detail>
- <detail>
{{.PhaseNumber}}.2: <short step title>
- <detail>
{{if .Grouped}}
Organize the steps into task groups of at most {{.TaskGroupSize}} steps:
- **Group 1** [estimated_files: glob, glob]
  {{.PhaseNumber}}.1: <short step title>
  - <detail>
{{end}}
Provide at least 8 steps. Keep each step concise and actionable.`))

// strictStepsPromptTmpl is the fallback re-prompt when the first detailed
// response yields no parseable steps.
var strictStepsPromptTmpl = template.Must(template.New("strict").Parse(
	`You are generating a detailed implementation plan for a software project.
Project: {{.ProjectName}}
Phase {{.PhaseNumber}}: {{.PhaseTitle}}

Return ONLY the following strict format in plain text (no headings, no extra prose):
{{.PhaseNumber}}.1: <short step title>
- <detail>
- <detail>
{{.PhaseNumber}}.2: <short step title>
- <detail>
- <detail>

Provide at least 8 steps. Keep each step concise and actionable.
Do not include any content other than the numbered steps and their '-' bullet details.`))

var handoffTmpl = template.Must(template.New("handoff").Parse(
	`# Handoff: {{.ProjectName}}

<!-- QUICK_STATUS_START -->
Current phase: {{.CurrentPhaseNumber}} ({{.CurrentPhaseName}})
Next task: {{.NextTaskID}} - {{.NextTaskDescription}}
Blockers: {{.Blockers}}
<!-- QUICK_STATUS_END -->

<!-- DEV_INSTRUCTIONS_START -->
Work through the devplan steps in order. Mark each step done before
starting the next. When a phase completes, regenerate this handoff.
<!-- DEV_INSTRUCTIONS_END -->

<!-- TOKEN_RULES_START -->
Keep responses focused on the current task. Reference devplan.json for
full context instead of restating it.
<!-- TOKEN_RULES_END -->

<!-- HANDOFF_NOTES_START -->
{{- range .NextSteps}}
- {{.Number}}: {{.Title}}
{{- end}}
<!-- HANDOFF_NOTES_END -->`))

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", ralpherrors.Wrapf(err, "rendering %s prompt", t.Name())
	}
	return b.String(), nil
}
