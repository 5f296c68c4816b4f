package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/Iron-Ham/ralph/internal/logging"
	"github.com/Iron-Ham/ralph/internal/pipeline"
)

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	if rootCmd.Use != "ralph" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "ralph")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"interview", "run", "sessions", "config", "logs", "version"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestSessionsSubcommands(t *testing.T) {
	expected := []string{"list", "status", "send", "clear"}
	cmdMap := make(map[string]bool)
	for _, cmd := range sessionsCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expected {
		if !cmdMap[name] {
			t.Errorf("expected sessions subcommand %q not found", name)
		}
	}
}

func TestInterviewConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Backend = "server"
	cfg.LLM.Model = "claude-sonnet-4"
	cfg.Pipeline.Grouping = "grouped"
	cfg.Pipeline.TaskGroupSize = 3
	cfg.Hivemind.DroneCount = 4
	cfg.Paths.SaveDir = "/tmp/ralph-out"

	icfg := interviewConfig(cfg)

	if icfg.Backend != "server" {
		t.Errorf("Backend = %q, want %q", icfg.Backend, "server")
	}
	if icfg.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want %q", icfg.Model, "claude-sonnet-4")
	}
	if icfg.Grouping != pipeline.GroupingGrouped {
		t.Errorf("Grouping = %q, want grouped", icfg.Grouping)
	}
	if icfg.TaskGroupSize != 3 {
		t.Errorf("TaskGroupSize = %d, want 3", icfg.TaskGroupSize)
	}
	if icfg.DroneCount != 4 {
		t.Errorf("DroneCount = %d, want 4", icfg.DroneCount)
	}
	if icfg.SaveDir != "/tmp/ralph-out" {
		t.Errorf("SaveDir = %q, want %q", icfg.SaveDir, "/tmp/ralph-out")
	}
	if !icfg.Streaming {
		t.Error("Streaming should follow the interview config default")
	}
}

func TestPipelineOptionsMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.SaveDir = "/tmp/ralph-out"
	cfg.Hivemind.DroneCount = 2
	cfg.Pipeline.ValidateDesign = true

	opts := pipelineOptions(cfg)

	if opts.OutputDir != "/tmp/ralph-out" {
		t.Errorf("OutputDir = %q, want %q", opts.OutputDir, "/tmp/ralph-out")
	}
	if opts.Grouping != pipeline.GroupingFlat {
		t.Errorf("Grouping = %q, want flat", opts.Grouping)
	}
	if opts.DroneCount != 2 {
		t.Errorf("DroneCount = %d, want 2", opts.DroneCount)
	}
	if !opts.ValidateDesign {
		t.Error("ValidateDesign should follow the pipeline config")
	}

	// Per-stage settings come from the stage defaults
	if opts.Design.Temperature != 0.5 {
		t.Errorf("Design.Temperature = %v, want 0.5", opts.Design.Temperature)
	}
	if opts.Design.MaxTokens != 4000 {
		t.Errorf("Design.MaxTokens = %d, want 4000", opts.Design.MaxTokens)
	}
	if opts.Detailed.Temperature != 0.4 {
		t.Errorf("Detailed.Temperature = %v, want 0.4", opts.Detailed.Temperature)
	}
}

func TestStreamPrinterTake(t *testing.T) {
	p := &streamPrinter{}
	p.b.WriteString("hello ")
	p.b.WriteString("world")

	if got := p.take(); got != "hello world" {
		t.Errorf("take() = %q, want %q", got, "hello world")
	}
	if got := p.take(); got != "" {
		t.Errorf("take() after reset = %q, want empty", got)
	}
}

func TestRenderProgress(t *testing.T) {
	line := renderProgress("design", 0.5, "Generating project design...")
	if !strings.Contains(line, "50%") {
		t.Errorf("renderProgress should include the percentage: %q", line)
	}
	if !strings.Contains(line, "design") {
		t.Errorf("renderProgress should include the stage: %q", line)
	}

	// Overfull progress clamps the bar instead of panicking
	line = renderProgress("complete", 1.2, "done")
	if line == "" {
		t.Error("renderProgress returned empty string for overfull progress")
	}
}

func TestBuildLogFilter(t *testing.T) {
	origLevel, origSince, origStage := logsLevel, logsSince, logsStage
	defer func() { logsLevel, logsSince, logsStage = origLevel, origSince, origStage }()

	logsLevel = "warn"
	logsSince = "30m"
	logsStage = "design"

	filter, err := buildLogFilter()
	if err != nil {
		t.Fatalf("buildLogFilter() error = %v", err)
	}
	if filter.Level != logging.LevelWarn {
		t.Errorf("filter.Level = %q, want %q", filter.Level, logging.LevelWarn)
	}
	if filter.Stage != "design" {
		t.Errorf("filter.Stage = %q, want %q", filter.Stage, "design")
	}
	if filter.StartTime.IsZero() {
		t.Error("filter.StartTime should be set when --since is given")
	}
	if time.Since(filter.StartTime) < 29*time.Minute {
		t.Errorf("filter.StartTime = %v, want roughly 30m ago", filter.StartTime)
	}

	logsSince = "not-a-duration"
	if _, err := buildLogFilter(); err == nil {
		t.Error("buildLogFilter() should reject an invalid --since value")
	}
}

func TestFormatLogEntry(t *testing.T) {
	entry := logging.LogEntry{
		Timestamp: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		Level:     logging.LevelError,
		Message:   "generation failed",
		Stage:     "devplan",
	}

	line := formatLogEntry(&entry)
	if !strings.Contains(line, "10:30:00") {
		t.Errorf("formatLogEntry should include the timestamp: %q", line)
	}
	if !strings.Contains(line, "ERROR") {
		t.Errorf("formatLogEntry should include the level: %q", line)
	}
	if !strings.Contains(line, "generation failed") {
		t.Errorf("formatLogEntry should include the message: %q", line)
	}
	if !strings.Contains(line, "stage=devplan") {
		t.Errorf("formatLogEntry should include the stage: %q", line)
	}
}
