package pipeline

import (
	"fmt"
	"strings"
	"testing"
)

func handoffPlan() *DevPlan {
	return &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{
				Number: 1,
				Title:  "Setup",
				Steps: []Step{
					{Number: "1.1", Description: "init repo", Done: true},
					{Number: "1.2", Description: "configure CI", Done: true},
				},
			},
			{
				Number: 2,
				Title:  "Build",
				Steps: []Step{
					{Number: "2.1", Description: "create models", Done: true},
					{Number: "2.2", Description: "add handlers"},
					{Number: "2.3", Description: "wire routes"},
				},
			},
			{
				Number: 3,
				Title:  "Polish",
				Steps: []Step{
					{Number: "3.1", Description: "write docs"},
				},
			},
		},
	}
}

func TestHandoffGenerate(t *testing.T) {
	gen := &HandoffGenerator{}
	handoff, err := gen.Generate(handoffPlan(), 2)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, name := range HandoffAnchors {
		if _, ok := ExtractAnchor(handoff.Content, name); !ok {
			t.Errorf("missing anchor section %s", name)
		}
	}

	status, _ := ExtractAnchor(handoff.Content, "QUICK_STATUS")
	if !strings.Contains(status, "Current phase: 2 (Build)") {
		t.Errorf("status = %q", status)
	}
	if !strings.Contains(status, "Next task: 2.2 - add handlers") {
		t.Errorf("status = %q", status)
	}
	if !strings.Contains(status, "Blockers: None known") {
		t.Errorf("status = %q", status)
	}

	want := []string{"2.2: add handlers", "2.3: wire routes"}
	if len(handoff.NextSteps) != len(want) {
		t.Fatalf("next steps = %v, want %v", handoff.NextSteps, want)
	}
	for i, s := range handoff.NextSteps {
		if s != want[i] {
			t.Errorf("next step %d = %q, want %q", i, s, want[i])
		}
	}
}

func TestHandoffGenerateBlockersOverride(t *testing.T) {
	gen := &HandoffGenerator{Blockers: "waiting on API keys"}
	handoff, err := gen.Generate(handoffPlan(), 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	status, _ := ExtractAnchor(handoff.Content, "QUICK_STATUS")
	if !strings.Contains(status, "Blockers: waiting on API keys") {
		t.Errorf("status = %q", status)
	}
}

func TestHandoffGenerateNoActivePhase(t *testing.T) {
	plan := &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{Number: 1, Title: "Setup", Steps: []Step{{Number: "1.1", Description: "init"}}},
		},
	}
	gen := &HandoffGenerator{}
	handoff, err := gen.Generate(plan, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	status, _ := ExtractAnchor(handoff.Content, "QUICK_STATUS")
	if !strings.Contains(status, "Current phase: None (No active phase)") {
		t.Errorf("status = %q", status)
	}
	if !strings.Contains(status, "Next task: 1.1") {
		t.Errorf("status = %q", status)
	}
}

func TestHandoffGenerateAllDone(t *testing.T) {
	plan := &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{Number: 1, Title: "Setup", Steps: []Step{{Number: "1.1", Description: "init", Done: true}}},
		},
	}
	gen := &HandoffGenerator{}
	handoff, err := gen.Generate(plan, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(handoff.NextSteps) != 0 {
		t.Errorf("next steps = %v, want none", handoff.NextSteps)
	}
	status, _ := ExtractAnchor(handoff.Content, "QUICK_STATUS")
	if !strings.Contains(status, "Next task: None - No remaining steps") {
		t.Errorf("status = %q", status)
	}
}

func TestHandoffTitleTruncation(t *testing.T) {
	long := strings.Repeat("x", 120)
	plan := &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{Number: 1, Title: "Setup", Steps: []Step{{Number: "1.1", Description: long}}},
		},
	}
	gen := &HandoffGenerator{}
	handoff, err := gen.Generate(plan, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "1.1: " + strings.Repeat("x", 80)
	if handoff.NextSteps[0] != want {
		t.Errorf("next step = %q", handoff.NextSteps[0])
	}
}

func TestHandoffDefaultTaskGroupSize(t *testing.T) {
	var steps []Step
	for i := 1; i <= 10; i++ {
		steps = append(steps, Step{Number: fmt.Sprintf("1.%d", i), Description: "step"})
	}
	plan := &DevPlan{ProjectName: "demo", Phases: []Phase{{Number: 1, Title: "Setup", Steps: steps}}}

	gen := &HandoffGenerator{}
	handoff, err := gen.Generate(plan, 0)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(handoff.NextSteps) != DefaultTaskGroupSize {
		t.Errorf("next steps = %d, want %d", len(handoff.NextSteps), DefaultTaskGroupSize)
	}
}
