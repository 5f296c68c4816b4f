package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Ralph configuration
type Config struct {
	LLM         LLMConfig         `mapstructure:"llm"`
	Interview   InterviewConfig   `mapstructure:"interview"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Hivemind    HivemindConfig    `mapstructure:"hivemind"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Paths       PathsConfig       `mapstructure:"paths"`
}

// LLMConfig controls which model backend is used and how it is reached
type LLMConfig struct {
	// Backend selects the transport: "opencode", "server", or "gemini"
	Backend string `mapstructure:"backend"`
	// Provider is the model provider slug passed to the backend (e.g. "anthropic")
	Provider string `mapstructure:"provider"`
	// Model is the model identifier; empty uses the backend's default
	Model string `mapstructure:"model"`
	// ServerURL is the base URL for the "server" backend
	ServerURL string `mapstructure:"server_url"`
	// TimeoutSeconds is the per-request timeout (default: 120)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// CacheSize is the number of responses kept in the LRU response cache (0 disables caching)
	CacheSize int `mapstructure:"cache_size"`
}

// Timeout returns the request timeout as a time.Duration
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// InterviewConfig controls interactive interview behavior
type InterviewConfig struct {
	// Streaming enables chunked response streaming in interactive mode (default: true)
	Streaming bool `mapstructure:"streaming"`
	// AutoSave saves session state after every exchange (default: true)
	AutoSave bool `mapstructure:"auto_save"`
	// MaxHistory caps the number of retained conversation messages (default: 100)
	MaxHistory int `mapstructure:"max_history"`
}

// PipelineConfig controls plan generation behavior
type PipelineConfig struct {
	// Grouping selects the devplan shape: "flat" or "grouped"
	Grouping string `mapstructure:"grouping"`
	// TaskGroupSize is the maximum number of related tasks per group in grouped mode (default: 5)
	TaskGroupSize int `mapstructure:"task_group_size"`
	// ValidateDesign runs the rule-based design correction loop before the devplan stage
	ValidateDesign bool `mapstructure:"validate_design"`
}

// HivemindConfig controls parallel drone generation
type HivemindConfig struct {
	// DroneCount is the number of parallel workers for detailed phase generation (default: 1)
	DroneCount int `mapstructure:"drone_count"`
}

// ConcurrencyConfig controls the shared request limiter
type ConcurrencyConfig struct {
	// Limit is the maximum number of in-flight LLM requests (default: 5)
	Limit int `mapstructure:"limit"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// PathsConfig controls where Ralph stores data
type PathsConfig struct {
	// SaveDir is where completed interviews and generated artifacts are written.
	// If empty, defaults to "output" under the data directory.
	// Supports ~ for home directory expansion.
	SaveDir string `mapstructure:"save_dir"`

	// SessionsDir is where resumable session state is persisted.
	// If empty, defaults to "sessions" under the data directory.
	SessionsDir string `mapstructure:"sessions_dir"`

	// PromptsDir holds stage system prompt overrides ({stage}_system_prompt.md).
	// If empty, the embedded prompts are used.
	PromptsDir string `mapstructure:"prompts_dir"`
}

// ResolveSaveDir returns the resolved artifact output directory
func (p *PathsConfig) ResolveSaveDir() string {
	return resolvePath(p.SaveDir, filepath.Join(DataDir(), "output"))
}

// ResolveSessionsDir returns the resolved session state directory
func (p *PathsConfig) ResolveSessionsDir() string {
	return resolvePath(p.SessionsDir, filepath.Join(DataDir(), "sessions"))
}

// ResolvePromptsDir returns the resolved prompts directory, or "" when unset
// (embedded prompts are used)
func (p *PathsConfig) ResolvePromptsDir() string {
	if p.PromptsDir == "" {
		return ""
	}
	return resolvePath(p.PromptsDir, "")
}

// resolvePath expands ~ and falls back to def when path is empty
func resolvePath(path, def string) string {
	if path == "" {
		return def
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}
	return path
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend:        "opencode",
			Provider:       "anthropic",
			Model:          "",
			ServerURL:      "http://localhost:4096",
			TimeoutSeconds: 120,
			CacheSize:      64,
		},
		Interview: InterviewConfig{
			Streaming:  true,
			AutoSave:   true,
			MaxHistory: 100,
		},
		Pipeline: PipelineConfig{
			Grouping:       "flat",
			TaskGroupSize:  5,
			ValidateDesign: false,
		},
		Hivemind: HivemindConfig{
			DroneCount: 1, // Single drone unless swarm mode is requested
		},
		Concurrency: ConcurrencyConfig{
			Limit: 5,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Paths: PathsConfig{
			SaveDir:     "", // Empty means use default: <data dir>/output
			SessionsDir: "",
			PromptsDir:  "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// LLM defaults
	viper.SetDefault("llm.backend", defaults.LLM.Backend)
	viper.SetDefault("llm.provider", defaults.LLM.Provider)
	viper.SetDefault("llm.model", defaults.LLM.Model)
	viper.SetDefault("llm.server_url", defaults.LLM.ServerURL)
	viper.SetDefault("llm.timeout_seconds", defaults.LLM.TimeoutSeconds)
	viper.SetDefault("llm.cache_size", defaults.LLM.CacheSize)

	// Interview defaults
	viper.SetDefault("interview.streaming", defaults.Interview.Streaming)
	viper.SetDefault("interview.auto_save", defaults.Interview.AutoSave)
	viper.SetDefault("interview.max_history", defaults.Interview.MaxHistory)

	// Pipeline defaults
	viper.SetDefault("pipeline.grouping", defaults.Pipeline.Grouping)
	viper.SetDefault("pipeline.task_group_size", defaults.Pipeline.TaskGroupSize)
	viper.SetDefault("pipeline.validate_design", defaults.Pipeline.ValidateDesign)

	// Hivemind defaults
	viper.SetDefault("hivemind.drone_count", defaults.Hivemind.DroneCount)

	// Concurrency defaults
	viper.SetDefault("concurrency.limit", defaults.Concurrency.Limit)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Paths defaults
	viper.SetDefault("paths.save_dir", defaults.Paths.SaveDir)
	viper.SetDefault("paths.sessions_dir", defaults.Paths.SessionsDir)
	viper.SetDefault("paths.prompts_dir", defaults.Paths.PromptsDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ralph")
	}
	// Fall back to ~/.config/ralph
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ralph"
	}
	return filepath.Join(home, ".config", "ralph")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the path to the user's data directory
func DataDir() string {
	// Check XDG_DATA_HOME first
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ralph")
	}
	// Fall back to ~/.local/share/ralph
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ralph"
	}
	return filepath.Join(home, ".local", "share", "ralph")
}

// ValidBackends returns the list of valid LLM backend values
func ValidBackends() []string {
	return []string{"opencode", "server", "gemini"}
}

// IsValidBackend checks if the given backend is valid
func IsValidBackend(backend string) bool {
	for _, valid := range ValidBackends() {
		if backend == valid {
			return true
		}
	}
	return false
}
