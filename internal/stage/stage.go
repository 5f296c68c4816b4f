// Package stage models the plan-generation pipeline as a gated state machine.
//
// Five stages run in a fixed order: interview, design, devplan, detailed,
// handoff. Each stage carries its own generation settings (system prompt,
// temperature, token budget) and a set of predecessor stages that must be
// complete before it can run. The Coordinator tracks exactly one current
// stage at a time; a blocked transition is a no-op, never a panic.
package stage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Iron-Ham/ralph/internal/errors"
)

// Stage identifies a pipeline stage.
type Stage string

const (
	// Interview gathers project requirements through conversation.
	Interview Stage = "interview"
	// Design generates a project design document from requirements.
	Design Stage = "design"
	// Devplan creates a high-level development plan with phases.
	Devplan Stage = "devplan"
	// Detailed generates detailed implementation steps for each phase.
	Detailed Stage = "detailed"
	// Handoff creates a handoff prompt for the implementation agent.
	Handoff Stage = "handoff"
)

// order is the canonical stage sequence.
var order = []Stage{Interview, Design, Devplan, Detailed, Handoff}

// All returns the stages in pipeline order.
func All() []Stage {
	out := make([]Stage, len(order))
	copy(out, order)
	return out
}

// Parse converts a string into a Stage, or returns ErrUnknownStage.
func Parse(s string) (Stage, error) {
	for _, st := range order {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Wrapf(errors.ErrUnknownStage, "%q", s)
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range order {
		if s == st {
			return true
		}
	}
	return false
}

// DisplayName returns the human-readable stage name.
func (s Stage) DisplayName() string {
	switch s {
	case Interview:
		return "Requirements Gathering"
	case Design:
		return "Project Design"
	case Devplan:
		return "Development Plan"
	case Detailed:
		return "Detailed Steps"
	case Handoff:
		return "Handoff Prompt"
	default:
		return string(s)
	}
}

// Description returns a brief description of what the stage does.
func (s Stage) Description() string {
	switch s {
	case Interview:
		return "Chat to gather project requirements and preferences"
	case Design:
		return "Generate a comprehensive project design document"
	case Devplan:
		return "Create a high-level development plan with phases"
	case Detailed:
		return "Generate detailed implementation steps for each phase"
	case Handoff:
		return "Create a handoff prompt for the implementation agent"
	default:
		return ""
	}
}

// Next returns the stage following s, or false when s is the last stage
// (or unknown).
func (s Stage) Next() (Stage, bool) {
	for i, st := range order {
		if s == st && i < len(order)-1 {
			return order[i+1], true
		}
	}
	return "", false
}

// Prev returns the stage preceding s, or false when s is the first stage
// (or unknown).
func (s Stage) Prev() (Stage, bool) {
	for i, st := range order {
		if s == st && i > 0 {
			return order[i-1], true
		}
	}
	return "", false
}

// index returns the position of s in the canonical order, or -1.
func (s Stage) index() int {
	for i, st := range order {
		if s == st {
			return i
		}
	}
	return -1
}

// Config holds the generation settings for one stage.
type Config struct {
	// Stage this config belongs to.
	Stage Stage
	// SystemPrompt sent with every LLM call for this stage.
	SystemPrompt string
	// Temperature for LLM sampling.
	Temperature float64
	// MaxTokens caps the response length.
	MaxTokens int
	// RequiresPrevious lists stages that must complete before this one runs.
	RequiresPrevious []Stage
	// AutoAdvance indicates the pipeline should move on as soon as this
	// stage produces its artifact, without waiting for the user.
	AutoAdvance bool
}

// DefaultConfigs returns the standard per-stage settings. System prompts are
// loaded from {promptsDir}/{stage}_system_prompt.md when present, otherwise
// the embedded defaults are used. An empty promptsDir always uses the
// embedded defaults.
func DefaultConfigs(promptsDir string) map[Stage]Config {
	configs := map[Stage]Config{
		Interview: {
			Stage:            Interview,
			Temperature:      0.7,
			MaxTokens:        2000,
			RequiresPrevious: nil,
			AutoAdvance:      false, // User controls when the interview is done
		},
		Design: {
			Stage:            Design,
			Temperature:      0.5,
			MaxTokens:        4000,
			RequiresPrevious: []Stage{Interview},
			AutoAdvance:      true,
		},
		Devplan: {
			Stage:            Devplan,
			Temperature:      0.5,
			MaxTokens:        3000,
			RequiresPrevious: []Stage{Design},
			AutoAdvance:      true,
		},
		Detailed: {
			Stage:            Detailed,
			Temperature:      0.4,
			MaxTokens:        4000,
			RequiresPrevious: []Stage{Devplan},
			AutoAdvance:      true,
		},
		Handoff: {
			Stage:            Handoff,
			Temperature:      0.3,
			MaxTokens:        3000,
			RequiresPrevious: []Stage{Detailed},
			AutoAdvance:      false,
		},
	}

	for st, cfg := range configs {
		cfg.SystemPrompt = loadPrompt(promptsDir, st)
		configs[st] = cfg
	}
	return configs
}

// loadPrompt reads the stage prompt file, falling back to the embedded
// default when the file is absent or unreadable.
func loadPrompt(promptsDir string, s Stage) string {
	if promptsDir != "" {
		path := filepath.Join(promptsDir, fmt.Sprintf("%s_system_prompt.md", s))
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return defaultPrompt(s)
}
