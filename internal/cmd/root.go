package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ralph",
	Short: "LLM-driven development plan generator",
	Long: `Ralph interviews you about a project idea and drives it through a
staged pipeline (requirements, design, devplan, detailed steps, handoff),
producing implementation-ready planning artifacts.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/ralph/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/ralph")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("RALPH")
	// Replace dots with underscores for nested keys in env vars
	// e.g., RALPH_LLM_BACKEND for llm.backend
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// newLogger builds the debug logger from the logging section. Disabled
// logging returns a no-op logger so call sites never nil-check.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(
		filepath.Join(config.DataDir(), "logs"),
		cfg.Logging.Level,
		logging.RotationConfig{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		},
	)
}

// newClient builds the LLM client from the llm section.
func newClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	return llm.NewFromConfig(ctx, llm.Config{
		Backend:   cfg.LLM.Backend,
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		ServerURL: cfg.LLM.ServerURL,
		Timeout:   cfg.LLM.Timeout(),
		CacheSize: cfg.LLM.CacheSize,
	})
}

// newLimiter builds the shared request limiter from the concurrency section.
func newLimiter(cfg *config.Config) *concurrency.Limiter {
	limit := cfg.Concurrency.Limit
	if limit <= 0 {
		limit = concurrency.DefaultLimit
	}
	return concurrency.NewLimiter(limit)
}
