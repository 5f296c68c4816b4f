package stage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/ralph/internal/errors"
)

func TestStage_Order(t *testing.T) {
	want := []Stage{Interview, Design, Devplan, Detailed, Handoff}
	got := All()

	if len(got) != len(want) {
		t.Fatalf("All() returned %d stages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStage_NextPrev(t *testing.T) {
	tests := []struct {
		stage   Stage
		next    Stage
		hasNext bool
		prev    Stage
		hasPrev bool
	}{
		{Interview, Design, true, "", false},
		{Design, Devplan, true, Interview, true},
		{Devplan, Detailed, true, Design, true},
		{Detailed, Handoff, true, Devplan, true},
		{Handoff, "", false, Detailed, true},
		{Stage("bogus"), "", false, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			next, ok := tt.stage.Next()
			if ok != tt.hasNext || next != tt.next {
				t.Errorf("Next() = (%q, %v), want (%q, %v)", next, ok, tt.next, tt.hasNext)
			}

			prev, ok := tt.stage.Prev()
			if ok != tt.hasPrev || prev != tt.prev {
				t.Errorf("Prev() = (%q, %v), want (%q, %v)", prev, ok, tt.prev, tt.hasPrev)
			}
		})
	}
}

func TestParse(t *testing.T) {
	for _, s := range All() {
		got, err := Parse(string(s))
		if err != nil {
			t.Errorf("Parse(%q) error: %v", s, err)
		}
		if got != s {
			t.Errorf("Parse(%q) = %q", s, got)
		}
	}

	if _, err := Parse("deploy"); !errors.Is(err, errors.ErrUnknownStage) {
		t.Errorf("Parse(\"deploy\") error = %v, want ErrUnknownStage", err)
	}
}

func TestStage_DisplayName(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{Interview, "Requirements Gathering"},
		{Design, "Project Design"},
		{Devplan, "Development Plan"},
		{Detailed, "Detailed Steps"},
		{Handoff, "Handoff Prompt"},
	}

	for _, tt := range tests {
		if got := tt.stage.DisplayName(); got != tt.want {
			t.Errorf("%s.DisplayName() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestDefaultConfigs(t *testing.T) {
	configs := DefaultConfigs("")

	tests := []struct {
		stage       Stage
		temperature float64
		maxTokens   int
		requires    []Stage
		autoAdvance bool
	}{
		{Interview, 0.7, 2000, nil, false},
		{Design, 0.5, 4000, []Stage{Interview}, true},
		{Devplan, 0.5, 3000, []Stage{Design}, true},
		{Detailed, 0.4, 4000, []Stage{Devplan}, true},
		{Handoff, 0.3, 3000, []Stage{Detailed}, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			cfg, ok := configs[tt.stage]
			if !ok {
				t.Fatalf("no config for stage %s", tt.stage)
			}
			if cfg.Temperature != tt.temperature {
				t.Errorf("Temperature = %v, want %v", cfg.Temperature, tt.temperature)
			}
			if cfg.MaxTokens != tt.maxTokens {
				t.Errorf("MaxTokens = %d, want %d", cfg.MaxTokens, tt.maxTokens)
			}
			if cfg.AutoAdvance != tt.autoAdvance {
				t.Errorf("AutoAdvance = %v, want %v", cfg.AutoAdvance, tt.autoAdvance)
			}
			if len(cfg.RequiresPrevious) != len(tt.requires) {
				t.Fatalf("RequiresPrevious = %v, want %v", cfg.RequiresPrevious, tt.requires)
			}
			for i, req := range tt.requires {
				if cfg.RequiresPrevious[i] != req {
					t.Errorf("RequiresPrevious[%d] = %q, want %q", i, cfg.RequiresPrevious[i], req)
				}
			}
			if cfg.SystemPrompt == "" {
				t.Error("SystemPrompt is empty")
			}
		})
	}
}

func TestDefaultConfigs_PromptFileOverride(t *testing.T) {
	dir := t.TempDir()
	custom := "Custom design prompt for testing."
	path := filepath.Join(dir, "design_system_prompt.md")
	if err := os.WriteFile(path, []byte(custom), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	configs := DefaultConfigs(dir)

	if got := configs[Design].SystemPrompt; got != custom {
		t.Errorf("Design prompt = %q, want file contents", got)
	}
	// Stages without a file keep the embedded default.
	if !strings.Contains(configs[Interview].SystemPrompt, "Ralph") {
		t.Error("Interview prompt should fall back to the embedded default")
	}
}
