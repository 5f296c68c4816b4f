package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify default LLM config
	if cfg.LLM.Backend != "opencode" {
		t.Errorf("LLM.Backend = %q, want %q", cfg.LLM.Backend, "opencode")
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "anthropic")
	}
	if cfg.LLM.ServerURL != "http://localhost:4096" {
		t.Errorf("LLM.ServerURL = %q, want %q", cfg.LLM.ServerURL, "http://localhost:4096")
	}
	if cfg.LLM.TimeoutSeconds != 120 {
		t.Errorf("LLM.TimeoutSeconds = %d, want 120", cfg.LLM.TimeoutSeconds)
	}
	if cfg.LLM.CacheSize != 64 {
		t.Errorf("LLM.CacheSize = %d, want 64", cfg.LLM.CacheSize)
	}

	// Verify default interview config
	if !cfg.Interview.Streaming {
		t.Error("Interview.Streaming should be true by default")
	}
	if !cfg.Interview.AutoSave {
		t.Error("Interview.AutoSave should be true by default")
	}
	if cfg.Interview.MaxHistory != 100 {
		t.Errorf("Interview.MaxHistory = %d, want 100", cfg.Interview.MaxHistory)
	}

	// Verify default pipeline config
	if cfg.Pipeline.Grouping != "flat" {
		t.Errorf("Pipeline.Grouping = %q, want %q", cfg.Pipeline.Grouping, "flat")
	}
	if cfg.Pipeline.TaskGroupSize != 5 {
		t.Errorf("Pipeline.TaskGroupSize = %d, want 5", cfg.Pipeline.TaskGroupSize)
	}
	if cfg.Pipeline.ValidateDesign {
		t.Error("Pipeline.ValidateDesign should default to false")
	}

	// Verify default hivemind and concurrency config
	if cfg.Hivemind.DroneCount != 1 {
		t.Errorf("Hivemind.DroneCount = %d, want 1", cfg.Hivemind.DroneCount)
	}
	if cfg.Concurrency.Limit != 5 {
		t.Errorf("Concurrency.Limit = %d, want 5", cfg.Concurrency.Limit)
	}

	// Verify default logging config
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}

	// Paths are empty by default, resolved against the data directory
	if cfg.Paths.SaveDir != "" {
		t.Errorf("Paths.SaveDir = %q, want empty", cfg.Paths.SaveDir)
	}
}

func TestLLMConfig_Timeout(t *testing.T) {
	tests := []struct {
		seconds int
		want    time.Duration
	}{
		{120, 120 * time.Second},
		{1, time.Second},
		{0, 0},
	}

	for _, tt := range tests {
		cfg := LLMConfig{TimeoutSeconds: tt.seconds}
		if got := cfg.Timeout(); got != tt.want {
			t.Errorf("Timeout() for %d seconds = %v, want %v", tt.seconds, got, tt.want)
		}
	}
}

func TestIsValidBackend(t *testing.T) {
	tests := []struct {
		backend string
		want    bool
	}{
		{"opencode", true},
		{"server", true},
		{"gemini", true},
		{"", false},
		{"openai", false},
		{"OPENCODE", false},
	}

	for _, tt := range tests {
		if got := IsValidBackend(tt.backend); got != tt.want {
			t.Errorf("IsValidBackend(%q) = %v, want %v", tt.backend, got, tt.want)
		}
	}
}

func TestConfigDir(t *testing.T) {
	// Test with XDG_CONFIG_HOME set
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CONFIG_HOME")
		defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

		_ = os.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/ralph"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	// Test without XDG_CONFIG_HOME
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_CONFIG_HOME")
		defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

		_ = os.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		// Should be based on home directory
		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "ralph")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	original := os.Getenv("XDG_CONFIG_HOME")
	defer func() { _ = os.Setenv("XDG_CONFIG_HOME", original) }()

	_ = os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/ralph/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestDataDir(t *testing.T) {
	t.Run("with XDG_DATA_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_DATA_HOME")
		defer func() { _ = os.Setenv("XDG_DATA_HOME", original) }()

		_ = os.Setenv("XDG_DATA_HOME", "/custom/data")
		result := DataDir()
		expected := "/custom/data/ralph"
		if result != expected {
			t.Errorf("DataDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_DATA_HOME", func(t *testing.T) {
		original := os.Getenv("XDG_DATA_HOME")
		defer func() { _ = os.Setenv("XDG_DATA_HOME", original) }()

		_ = os.Setenv("XDG_DATA_HOME", "")
		result := DataDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".local", "share", "ralph")
		if result != expected {
			t.Errorf("DataDir() = %q, want %q", result, expected)
		}
	})
}

func TestPathsConfig_Resolve(t *testing.T) {
	original := os.Getenv("XDG_DATA_HOME")
	defer func() { _ = os.Setenv("XDG_DATA_HOME", original) }()
	_ = os.Setenv("XDG_DATA_HOME", "/custom/data")

	t.Run("defaults under data dir", func(t *testing.T) {
		p := PathsConfig{}
		if got, want := p.ResolveSaveDir(), "/custom/data/ralph/output"; got != want {
			t.Errorf("ResolveSaveDir() = %q, want %q", got, want)
		}
		if got, want := p.ResolveSessionsDir(), "/custom/data/ralph/sessions"; got != want {
			t.Errorf("ResolveSessionsDir() = %q, want %q", got, want)
		}
		if got := p.ResolvePromptsDir(); got != "" {
			t.Errorf("ResolvePromptsDir() = %q, want empty", got)
		}
	})

	t.Run("explicit paths pass through", func(t *testing.T) {
		p := PathsConfig{
			SaveDir:     "/srv/ralph/out",
			SessionsDir: "/srv/ralph/sessions",
			PromptsDir:  "/etc/ralph/prompts",
		}
		if got := p.ResolveSaveDir(); got != "/srv/ralph/out" {
			t.Errorf("ResolveSaveDir() = %q", got)
		}
		if got := p.ResolveSessionsDir(); got != "/srv/ralph/sessions" {
			t.Errorf("ResolveSessionsDir() = %q", got)
		}
		if got := p.ResolvePromptsDir(); got != "/etc/ralph/prompts" {
			t.Errorf("ResolvePromptsDir() = %q", got)
		}
	})

	t.Run("tilde expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		p := PathsConfig{SaveDir: "~/ralph-out"}
		if got, want := p.ResolveSaveDir(), filepath.Join(home, "ralph-out"); got != want {
			t.Errorf("ResolveSaveDir() = %q, want %q", got, want)
		}
	})
}

func TestGet(t *testing.T) {
	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	// Get() should return defaults when no config file exists
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}

	// Should have default values
	if cfg.LLM.Backend != "opencode" {
		t.Errorf("Get().LLM.Backend = %q, want %q", cfg.LLM.Backend, "opencode")
	}
	if cfg.Pipeline.TaskGroupSize != 5 {
		t.Errorf("Get().Pipeline.TaskGroupSize = %d, want 5", cfg.Pipeline.TaskGroupSize)
	}
}
