package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/Iron-Ham/ralph/internal/pipeline"
	"github.com/Iron-Ham/ralph/internal/stage"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <requirements-file>",
	Short: "Generate a full plan from a requirements file",
	Long: `Run the full pipeline non-interactively from a requirements JSON file.

The file holds the fields an interview would have gathered:

  {
    "project_name": "my-service",
    "languages": ["Go"],
    "frameworks": ["cobra"],
    "requirements": "a CLI that ...",
    "apis": []
  }

Design, devplan, detailed steps, and the handoff prompt are generated and
written to a timestamped directory under the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runOutputDir string
	runGrouped   bool
	runDrones    int
	runGroupSize int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "output directory (default from config)")
	runCmd.Flags().BoolVar(&runGrouped, "grouped", false, "generate the devplan as task groups")
	runCmd.Flags().IntVar(&runDrones, "drones", 0, "parallel drones for detailed step generation")
	runCmd.Flags().IntVar(&runGroupSize, "group-size", 0, "maximum tasks per group in grouped mode")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read requirements file: %w", err)
	}
	var req pipeline.Requirements
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse requirements file: %w", err)
	}

	ctx := cmd.Context()
	client, err := newClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	pl := pipeline.New(client, newLimiter(cfg), logger, pipelineOptions(cfg))
	pl.OnProgress(func(p pipeline.Progress) {
		fmt.Println(renderProgress(p.Stage, p.Progress, p.Message))
	})

	result, err := pl.RunFromRequirements(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Plan generated for %s\n", result.ProjectName)
	fmt.Printf("Artifacts written to %s\n", result.OutputDir)
	return nil
}

// pipelineOptions maps the loaded configuration and run flags onto pipeline
// options, taking per-stage LLM settings from the stage defaults.
func pipelineOptions(cfg *config.Config) pipeline.Options {
	stages := stage.DefaultConfigs(cfg.Paths.ResolvePromptsDir())

	grouping := pipeline.GroupingFlat
	if cfg.Pipeline.Grouping == string(pipeline.GroupingGrouped) || runGrouped {
		grouping = pipeline.GroupingGrouped
	}

	opts := pipeline.Options{
		OutputDir:      cfg.Paths.ResolveSaveDir(),
		Grouping:       grouping,
		TaskGroupSize:  cfg.Pipeline.TaskGroupSize,
		DroneCount:     cfg.Hivemind.DroneCount,
		ValidateDesign: cfg.Pipeline.ValidateDesign,
		Design: pipeline.GenerateOptions{
			Temperature: stages[stage.Design].Temperature,
			MaxTokens:   stages[stage.Design].MaxTokens,
		},
		DevPlan: pipeline.GenerateOptions{
			Temperature: stages[stage.Devplan].Temperature,
			MaxTokens:   stages[stage.Devplan].MaxTokens,
		},
		Detailed: pipeline.GenerateOptions{
			Temperature: stages[stage.Detailed].Temperature,
			MaxTokens:   stages[stage.Detailed].MaxTokens,
		},
	}

	if runOutputDir != "" {
		opts.OutputDir = runOutputDir
	}
	if runGroupSize > 0 {
		opts.TaskGroupSize = runGroupSize
	}
	if runDrones > 0 {
		opts.DroneCount = runDrones
	}
	return opts
}
