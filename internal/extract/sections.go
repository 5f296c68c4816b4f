package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Step is one numbered implementation step parsed from a detailed phase
// response.
type Step struct {
	Number      string   `json:"number"`
	Description string   `json:"description"`
	Details     []string `json:"details,omitempty"`
}

// PhaseSteps parses the numbered step format from a detailed phase response:
//
//	N.1: Create the project scaffold
//	- set up the module
//	- add CI config
//	N.2: Implement storage
//
// Only steps prefixed with the given phase number are returned; dash bullets
// under a step become its details.
func PhaseSteps(response string, phaseNumber int) []Step {
	stepPattern := regexp.MustCompile(fmt.Sprintf(`(?i)^%d\.(\d+):?\s*(.+)$`, phaseNumber))

	var steps []Step
	var current *Step

	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimSpace(line)

		if m := stepPattern.FindStringSubmatch(stripped); m != nil {
			if current != nil {
				steps = append(steps, *current)
			}
			current = &Step{
				Number:      fmt.Sprintf("%d.%s", phaseNumber, m[1]),
				Description: strings.TrimSpace(m[2]),
			}
			continue
		}

		if current != nil && strings.HasPrefix(stripped, "-") {
			if detail := strings.TrimSpace(stripped[1:]); detail != "" {
				current.Details = append(current.Details, detail)
			}
		}
	}

	if current != nil {
		steps = append(steps, *current)
	}
	return steps
}

// DesignSections is the structured content of a project design response.
type DesignSections struct {
	Objectives           []string `json:"objectives"`
	TechStack            []string `json:"tech_stack"`
	ArchitectureOverview string   `json:"architecture_overview"`
	Dependencies         []string `json:"dependencies"`
	Challenges           []string `json:"challenges"`
	Mitigations          []string `json:"mitigations"`
}

// ParseDesignSections splits a markdown design response into its sections.
// Headers are matched by keyword ("objective", "technology stack",
// "architecture", "dependencies", "challenge") at any heading level; dash
// bullets under a header land in that section. Challenge bullets mentioning
// a mitigation, solution, or address are routed to Mitigations. When no
// architecture section exists the whole response becomes the overview, so
// downstream consumers never see an empty design.
func ParseDesignSections(response string) DesignSections {
	var result DesignSections
	var section string
	var architectureLines []string

	for _, line := range strings.Split(response, "\n") {
		stripped := strings.TrimSpace(line)
		lower := strings.ToLower(stripped)

		if strings.HasPrefix(stripped, "#") {
			switch {
			case strings.Contains(lower, "objective"):
				section = "objectives"
			case strings.Contains(lower, "technology stack"):
				section = "tech_stack"
			case strings.Contains(lower, "architecture"):
				section = "architecture"
				architectureLines = nil
			case strings.Contains(lower, "dependencies"):
				section = "dependencies"
			case strings.Contains(lower, "challenge"):
				section = "challenges"
			default:
				section = ""
			}
			continue
		}

		if section == "architecture" {
			if stripped != "" {
				architectureLines = append(architectureLines, stripped)
			}
			continue
		}

		if section != "" && strings.HasPrefix(stripped, "-") {
			content := strings.TrimSpace(stripped[1:])
			if content == "" {
				continue
			}
			switch section {
			case "objectives":
				result.Objectives = append(result.Objectives, content)
			case "tech_stack":
				result.TechStack = append(result.TechStack, content)
			case "dependencies":
				result.Dependencies = append(result.Dependencies, content)
			case "challenges":
				if isMitigation(content) {
					result.Mitigations = append(result.Mitigations, content)
				} else {
					result.Challenges = append(result.Challenges, content)
				}
			}
		}
	}

	if len(architectureLines) > 0 {
		result.ArchitectureOverview = strings.Join(architectureLines, "\n")
	} else if response != "" {
		result.ArchitectureOverview = response
	}

	return result
}

func isMitigation(content string) bool {
	lower := strings.ToLower(content)
	for _, kw := range []string{"mitigation", "solution", "address"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
