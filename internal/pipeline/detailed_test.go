package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	"github.com/Iron-Ham/ralph/internal/llm"
)

func stepsResponse(phase int) string {
	var b strings.Builder
	for i := 1; i <= 3; i++ {
		fmt.Fprintf(&b, "%d.%d: Step %d of phase %d\n- detail a\n- detail b\n", phase, i, i, phase)
	}
	return b.String()
}

func TestDetailedGenerate(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Phase 1:"):
			return stepsResponse(1), nil
		case strings.Contains(req.Prompt, "Phase 2:"):
			return stepsResponse(2), nil
		}
		return "", fmt.Errorf("unexpected prompt: %q", req.Prompt)
	}}

	gen := NewDetailedGenerator(client, nil, nil)
	plan := &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{Number: 1, Title: "Setup"},
			{Number: 2, Title: "Build"},
		},
	}
	design := &Design{ProjectName: "demo", TechStack: []string{"Go"}}

	detailed, err := gen.Generate(context.Background(), plan, design, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(detailed.Phases) != 2 {
		t.Fatalf("phases = %d, want 2", len(detailed.Phases))
	}
	// Results come back in input order even when phases finish out of order.
	if detailed.Phases[0].Number != 1 || detailed.Phases[1].Number != 2 {
		t.Errorf("phase order = %d, %d", detailed.Phases[0].Number, detailed.Phases[1].Number)
	}
	first := detailed.Phases[0]
	if len(first.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(first.Steps))
	}
	if first.Steps[0].Number != "1.1" || first.Steps[0].Description != "Step 1 of phase 1" {
		t.Errorf("step = %+v", first.Steps[0])
	}
	if len(first.Steps[0].Details) != 2 {
		t.Errorf("details = %v", first.Steps[0].Details)
	}
}

func TestDetailedGenerateSwarmUnderSaturatedLimiter(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "Phase 1:"):
			return stepsResponse(1), nil
		case strings.Contains(req.Prompt, "Phase 2:"):
			return stepsResponse(2), nil
		case strings.Contains(req.Prompt, "Phase 3:"):
			return stepsResponse(3), nil
		}
		return "", fmt.Errorf("unexpected prompt: %q", req.Prompt)
	}}

	// More phases than limiter slots, with drones fanning out under each
	// phase. The drones must not contend for the phase-level slots.
	gen := NewDetailedGenerator(client, concurrency.NewLimiter(2), nil)
	gen.DroneCount = 2
	plan := &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{Number: 1, Title: "Setup"},
			{Number: 2, Title: "Build"},
			{Number: 3, Title: "Ship"},
		},
	}
	design := &Design{ProjectName: "demo", TechStack: []string{"Go"}}

	type result struct {
		plan *DevPlan
		err  error
	}
	done := make(chan result, 1)
	go func() {
		detailed, err := gen.Generate(context.Background(), plan, design, GenerateOptions{})
		done <- result{detailed, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Generate: %v", r.err)
		}
		if len(r.plan.Phases) != 3 {
			t.Errorf("phases = %d, want 3", len(r.plan.Phases))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Generate did not return; phase slots and drone fan-out are deadlocked")
	}
}

func TestDetailedGenerateDedupesPhaseNumbers(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		return stepsResponse(1), nil
	}}

	gen := NewDetailedGenerator(client, nil, nil)
	plan := &DevPlan{
		ProjectName: "demo",
		Phases: []Phase{
			{Number: 1, Title: "First"},
			{Number: 1, Title: "Duplicate"},
		},
	}

	detailed, err := gen.Generate(context.Background(), plan, &Design{}, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(detailed.Phases) != 1 {
		t.Fatalf("phases = %d, want 1", len(detailed.Phases))
	}
	if detailed.Phases[0].Title != "First" {
		t.Errorf("kept phase = %q, want first occurrence", detailed.Phases[0].Title)
	}
}

func TestDetailedGenerateStrictRetry(t *testing.T) {
	var calls int
	var mu sync.Mutex
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			return "nothing parseable here", nil
		}
		if !strings.Contains(req.Prompt, "strict format") {
			t.Errorf("second call is not the strict re-prompt: %q", req.Prompt)
		}
		if req.Temperature != 0.3 {
			t.Errorf("retry temperature = %v, want 0.3", req.Temperature)
		}
		if req.MaxTokens != 1200 {
			t.Errorf("retry max tokens = %d, want 1200", req.MaxTokens)
		}
		return stepsResponse(1), nil
	}}

	gen := NewDetailedGenerator(client, nil, nil)
	plan := &DevPlan{ProjectName: "demo", Phases: []Phase{{Number: 1, Title: "Setup"}}}

	detailed, err := gen.Generate(context.Background(), plan, &Design{}, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(detailed.Phases[0].Steps) != 3 {
		t.Errorf("steps = %d, want 3 from retry", len(detailed.Phases[0].Steps))
	}
}

func TestDetailedGeneratePlaceholderStep(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		return "still nothing parseable", nil
	}}

	gen := NewDetailedGenerator(client, nil, nil)
	plan := &DevPlan{ProjectName: "demo", Phases: []Phase{{Number: 3, Title: "Setup"}}}

	detailed, err := gen.Generate(context.Background(), plan, &Design{}, GenerateOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	steps := detailed.Phases[0].Steps
	if len(steps) != 1 {
		t.Fatalf("steps = %d, want 1 placeholder", len(steps))
	}
	if steps[0].Number != "3.1" || steps[0].Description != "Implement phase requirements" {
		t.Errorf("placeholder = %+v", steps[0])
	}
}

func TestDetailedGenerateGrouped(t *testing.T) {
	response := `- **Group 1** [estimated_files: internal/store/*.go]
1.1: Create the store
- define schema
1.2: Add migrations
- **Group 2** [estimated_files: internal/api/*.go]
1.3: Add handlers
`
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		return response, nil
	}}

	gen := NewDetailedGenerator(client, nil, nil)
	plan := &DevPlan{ProjectName: "demo", Phases: []Phase{{Number: 1, Title: "Core"}}}

	detailed, err := gen.Generate(context.Background(), plan, &Design{}, GenerateOptions{Grouping: GroupingGrouped})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	phase := detailed.Phases[0]
	if len(phase.TaskGroups) != 2 {
		t.Fatalf("task groups = %d, want 2", len(phase.TaskGroups))
	}
	// Steps flatten across groups.
	if len(phase.Steps) != 3 {
		t.Errorf("flattened steps = %d, want 3", len(phase.Steps))
	}
}

func TestDetailedOnPhaseComplete(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		return stepsResponse(1), nil
	}}

	gen := NewDetailedGenerator(client, nil, nil)
	var mu sync.Mutex
	var results []PhaseResult
	gen.OnPhaseComplete(func(r PhaseResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})

	plan := &DevPlan{ProjectName: "demo", Phases: []Phase{{Number: 1, Title: "Setup"}}}
	if _, err := gen.Generate(context.Background(), plan, &Design{}, GenerateOptions{}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("callbacks = %d, want 1", len(results))
	}
	if results[0].Phase.Number != 1 || results[0].ResponseChars == 0 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestParseTaskGroupsFallbackGroup(t *testing.T) {
	response := "2.1: First step\n- detail\n2.2: Second step"
	groups := ParseTaskGroups(response, 2)

	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].Description != "All tasks for this phase" {
		t.Errorf("description = %q", groups[0].Description)
	}
	if len(groups[0].Steps) != 2 {
		t.Errorf("steps = %d, want 2", len(groups[0].Steps))
	}
}

func TestParseTaskGroupsEmpty(t *testing.T) {
	if groups := ParseTaskGroups("no steps at all", 1); len(groups) != 0 {
		t.Errorf("groups = %v, want none", groups)
	}
}
