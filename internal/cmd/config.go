package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify Ralph configuration",
	Long: `View or modify Ralph configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  ralph config set llm.backend gemini
  ralph config set hivemind.drone_count 4
  ralph config set pipeline.grouping grouped

Valid keys:
  llm.backend              - LLM backend (opencode, server, gemini)
  llm.provider             - Model provider slug
  llm.model                - Model identifier
  llm.server_url           - Base URL for the server backend
  llm.timeout_seconds      - Per-request timeout in seconds
  llm.cache_size           - LRU response cache size (0 disables)
  interview.streaming      - Stream responses in interactive mode (true/false)
  interview.auto_save      - Save session state after every exchange (true/false)
  interview.max_history    - Maximum retained conversation messages
  pipeline.grouping        - Devplan shape (flat, grouped)
  pipeline.task_group_size - Maximum tasks per group in grouped mode
  pipeline.validate_design - Run the design correction loop before the devplan (true/false)
  hivemind.drone_count     - Parallel drones for detailed generation
  concurrency.limit        - Maximum in-flight LLM requests`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/ralph/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	// LLM settings
	fmt.Println("llm:")
	fmt.Printf("  backend: %s\n", cfg.LLM.Backend)
	fmt.Printf("  provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  model: %s\n", cfg.LLM.Model)
	fmt.Printf("  server_url: %s\n", cfg.LLM.ServerURL)
	fmt.Printf("  timeout_seconds: %d\n", cfg.LLM.TimeoutSeconds)
	fmt.Printf("  cache_size: %d\n", cfg.LLM.CacheSize)

	// Interview settings
	fmt.Println("interview:")
	fmt.Printf("  streaming: %v\n", cfg.Interview.Streaming)
	fmt.Printf("  auto_save: %v\n", cfg.Interview.AutoSave)
	fmt.Printf("  max_history: %d\n", cfg.Interview.MaxHistory)

	// Pipeline settings
	fmt.Println("pipeline:")
	fmt.Printf("  grouping: %s\n", cfg.Pipeline.Grouping)
	fmt.Printf("  task_group_size: %d\n", cfg.Pipeline.TaskGroupSize)
	fmt.Printf("  validate_design: %v\n", cfg.Pipeline.ValidateDesign)

	// Hivemind and concurrency settings
	fmt.Println("hivemind:")
	fmt.Printf("  drone_count: %d\n", cfg.Hivemind.DroneCount)
	fmt.Println("concurrency:")
	fmt.Printf("  limit: %d\n", cfg.Concurrency.Limit)

	// Logging settings
	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	// Paths
	fmt.Println("paths:")
	fmt.Printf("  save_dir: %s\n", cfg.Paths.ResolveSaveDir())
	fmt.Printf("  sessions_dir: %s\n", cfg.Paths.ResolveSessionsDir())
	if dir := cfg.Paths.ResolvePromptsDir(); dir != "" {
		fmt.Printf("  prompts_dir: %s\n", dir)
	} else {
		fmt.Printf("  prompts_dir: (embedded prompts)\n")
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"llm.backend":              "string",
		"llm.provider":             "string",
		"llm.model":                "string",
		"llm.server_url":           "string",
		"llm.timeout_seconds":      "int",
		"llm.cache_size":           "int",
		"interview.streaming":      "bool",
		"interview.auto_save":      "bool",
		"interview.max_history":    "int",
		"pipeline.grouping":        "string",
		"pipeline.task_group_size": "int",
		"pipeline.validate_design": "bool",
		"hivemind.drone_count":     "int",
		"concurrency.limit":        "int",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'ralph config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "llm.backend" && !config.IsValidBackend(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidBackends(), ", "))
		}
		if key == "pipeline.grouping" && value != "flat" && value != "grouped" {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidGroupings(), ", "))
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set the value in viper
	viper.Set(key, typedValue)

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'ralph config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Ralph Configuration
# See: https://github.com/Iron-Ham/ralph

# LLM backend settings
llm:
  # Backend: opencode, server, or gemini
  backend: opencode
  # Model provider slug for the opencode backend
  provider: anthropic
  # Model identifier (empty uses the backend's default)
  model: ""
  # Base URL for the server backend
  server_url: http://localhost:4096
  # Per-request timeout in seconds
  timeout_seconds: 120
  # LRU response cache size (0 disables caching)
  cache_size: 64

# Interactive interview settings
interview:
  # Stream responses as they are generated
  streaming: true
  # Save session state after every exchange
  auto_save: true
  # Maximum retained conversation messages
  max_history: 100

# Plan generation settings
pipeline:
  # Devplan shape: flat or grouped
  grouping: flat
  # Maximum tasks per group in grouped mode
  task_group_size: 5
  # Run the rule-based design correction loop before the devplan stage
  validate_design: false

# Parallel generation settings
hivemind:
  # Parallel drones for detailed step generation
  drone_count: 1
concurrency:
  # Maximum in-flight LLM requests
  limit: 5

# Debug logging
logging:
  enabled: true
  level: info
  max_size_mb: 10
  max_backups: 3

# Storage paths (empty uses XDG data directory defaults)
paths:
  save_dir: ""
  sessions_dir: ""
  prompts_dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize Ralph's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/ralph/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: RALPH_* (e.g., RALPH_LLM_BACKEND)")

	return nil
}
