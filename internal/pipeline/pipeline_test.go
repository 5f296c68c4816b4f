package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/ralph/internal/llm"
)

// fakeClient scripts LLM responses for generator tests.
type fakeClient struct {
	respond func(req llm.Request) (string, error)
}

func (f *fakeClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	return f.respond(req)
}

func (f *fakeClient) GenerateStream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	text, err := f.respond(req)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.Chunk, 1)
	ch <- llm.Chunk{Text: text}
	close(ch)
	return ch, nil
}

func (f *fakeClient) Name() string { return "fake" }

const devplanResponse = `**Phase 1: Setup**
- Summary: Scaffold the project
**Phase 2: Build**
- Summary: Implement the core`

// pipelineClient answers each stage's prompt with a canned response.
func pipelineClient(t *testing.T) *fakeClient {
	return &fakeClient{respond: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "senior software architect"):
			return designResponse, nil
		case strings.Contains(req.Prompt, "high-level development plan"):
			return devplanResponse, nil
		case strings.Contains(req.Prompt, "Phase 1:"):
			return stepsResponse(1), nil
		case strings.Contains(req.Prompt, "Phase 2:"):
			return stepsResponse(2), nil
		}
		t.Errorf("unexpected prompt: %q", req.Prompt)
		return "", errors.New("unexpected prompt")
	}}
}

func TestPipelineRunFromRequirements(t *testing.T) {
	outDir := t.TempDir()
	p := New(pipelineClient(t), nil, nil, Options{OutputDir: outDir})
	p.now = func() time.Time {
		return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	}

	var mu sync.Mutex
	var progress []Progress
	p.OnProgress(func(pr Progress) {
		mu.Lock()
		progress = append(progress, pr)
		mu.Unlock()
	})

	result, err := p.RunFromRequirements(context.Background(), Requirements{
		ProjectName:  "demo",
		Languages:    []string{"Go"},
		Requirements: "a task tracker",
	})
	if err != nil {
		t.Fatalf("RunFromRequirements: %v", err)
	}

	if result.Design == nil || result.DevPlan == nil || result.Handoff == nil {
		t.Fatalf("result missing artifacts: %+v", result)
	}
	if len(result.DevPlan.Phases) != 2 {
		t.Errorf("phases = %d, want 2", len(result.DevPlan.Phases))
	}
	for _, phase := range result.DevPlan.Phases {
		if len(phase.Steps) == 0 {
			t.Errorf("phase %d has no steps", phase.Number)
		}
	}

	wantDir := filepath.Join(outDir, "demo_20260829_103000")
	if result.OutputDir != wantDir {
		t.Errorf("output dir = %q, want %q", result.OutputDir, wantDir)
	}
	for _, name := range []string{
		"requirements.json", "design.json", "design.md",
		"devplan.json", "handoff.md", "handoff.json",
	} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Errorf("artifact %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(wantDir, "devplan.json"))
	if err != nil {
		t.Fatalf("reading devplan.json: %v", err)
	}
	var saved DevPlan
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("devplan.json: %v", err)
	}
	if saved.ProjectName != "demo" || len(saved.Phases) != 2 {
		t.Errorf("saved plan = %+v", saved)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(progress) == 0 {
		t.Fatal("no progress notifications")
	}
	last := progress[len(progress)-1]
	if last.Stage != "complete" || last.Progress != 1.0 {
		t.Errorf("last progress = %+v", last)
	}
	stagesSeen := make(map[string]bool)
	for _, pr := range progress {
		stagesSeen[pr.Stage] = true
		if pr.Progress < 0 || pr.Progress > 1 {
			t.Errorf("progress out of range: %+v", pr)
		}
	}
	for _, stage := range []string{"design", "devplan", "detailed", "handoff", "complete"} {
		if !stagesSeen[stage] {
			t.Errorf("no progress for stage %s", stage)
		}
	}
}

func TestPipelineValidateDesignOption(t *testing.T) {
	p := New(pipelineClient(t), nil, nil, Options{
		OutputDir:      t.TempDir(),
		ValidateDesign: true,
	})

	result, err := p.RunFromRequirements(context.Background(), Requirements{
		ProjectName:  "demo",
		Languages:    []string{"Go"},
		Requirements: "a task tracker",
	})
	if err != nil {
		t.Fatalf("RunFromRequirements: %v", err)
	}

	// The canned design has no testing section, so the correction loop
	// annotates the design text before the devplan stage.
	if !strings.Contains(result.Design.RawResponse, "Corrections applied") {
		t.Errorf("design text missing correction annotations: %q", result.Design.RawResponse)
	}
}

func TestPipelineRequiresProjectName(t *testing.T) {
	p := New(pipelineClient(t), nil, nil, Options{OutputDir: t.TempDir()})

	_, err := p.RunFromRequirements(context.Background(), Requirements{})
	if err == nil || !strings.Contains(err.Error(), "project name is required") {
		t.Errorf("err = %v", err)
	}
}

func TestPipelineRequiresOutputDir(t *testing.T) {
	p := New(pipelineClient(t), nil, nil, Options{})

	_, err := p.RunFromRequirements(context.Background(), Requirements{ProjectName: "demo"})
	if err == nil || !strings.Contains(err.Error(), "output directory is required") {
		t.Errorf("err = %v", err)
	}
}

func TestPipelineDesignFailure(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		return "", errors.New("backend down")
	}}
	p := New(client, nil, nil, Options{OutputDir: t.TempDir()})

	_, err := p.RunFromRequirements(context.Background(), Requirements{ProjectName: "demo"})
	if err == nil || !strings.Contains(err.Error(), "design generation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestPipelineGroupedOptionsPropagate(t *testing.T) {
	sawGroupInstructions := false
	var mu sync.Mutex
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "senior software architect"):
			return designResponse, nil
		case strings.Contains(req.Prompt, "high-level development plan"):
			if strings.Contains(req.Prompt, "task groups of at most\n3 related tasks") {
				mu.Lock()
				sawGroupInstructions = true
				mu.Unlock()
			}
			return "**Phase 1: Core**\n- **Group 1** [estimated_files: *.go]\n  - build it", nil
		default:
			return "- **Group 1** [estimated_files: *.go]\n1.1: Build the thing", nil
		}
	}}

	p := New(client, nil, nil, Options{
		OutputDir:     t.TempDir(),
		Grouping:      GroupingGrouped,
		TaskGroupSize: 3,
	})
	result, err := p.RunFromRequirements(context.Background(), Requirements{ProjectName: "demo"})
	if err != nil {
		t.Fatalf("RunFromRequirements: %v", err)
	}
	if !sawGroupInstructions {
		t.Error("devplan prompt missing grouped instructions")
	}
	if len(result.DevPlan.Phases[0].TaskGroups) == 0 {
		t.Error("no task groups in detailed plan")
	}
}

func TestPipelineSaveArtifactsSkipsMissing(t *testing.T) {
	p := New(pipelineClient(t), nil, nil, Options{OutputDir: t.TempDir()})

	result := &Result{ProjectName: "demo", Requirements: Requirements{ProjectName: "demo"}}
	if err := p.SaveArtifacts(result); err != nil {
		t.Fatalf("SaveArtifacts: %v", err)
	}
	entries, err := os.ReadDir(result.OutputDir)
	if err != nil {
		t.Fatalf("reading output dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "requirements.json" {
		t.Errorf("entries = %v, want only requirements.json", entries)
	}
}
