package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/Iron-Ham/ralph/internal/interview"
	"github.com/Iron-Ham/ralph/internal/pipeline"
	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Start an interactive planning interview",
	Long: `Start an interactive interview about your project.

Ralph asks about your goals, languages, and requirements, then generates a
design, development plan, detailed implementation steps, and a handoff prompt.
Type /help during the interview to see the available commands.`,
	RunE: runInterview,
}

var (
	interviewBackend  string
	interviewModel    string
	interviewDrones   int
	interviewGrouped  bool
	interviewNoStream bool
)

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringVar(&interviewBackend, "backend", "", "LLM backend: opencode, server, or gemini")
	interviewCmd.Flags().StringVar(&interviewModel, "model", "", "model identifier")
	interviewCmd.Flags().IntVar(&interviewDrones, "drones", 0, "parallel drones for detailed step generation")
	interviewCmd.Flags().BoolVar(&interviewGrouped, "grouped", false, "generate the devplan as task groups")
	interviewCmd.Flags().BoolVar(&interviewNoStream, "no-stream", false, "disable response streaming")
}

// interviewConfig maps the loaded configuration onto interview settings.
func interviewConfig(cfg *config.Config) interview.Config {
	grouping := pipeline.GroupingFlat
	if cfg.Pipeline.Grouping == string(pipeline.GroupingGrouped) {
		grouping = pipeline.GroupingGrouped
	}
	return interview.Config{
		Backend:       cfg.LLM.Backend,
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		ServerURL:     cfg.LLM.ServerURL,
		Streaming:     cfg.Interview.Streaming,
		SaveDir:       cfg.Paths.ResolveSaveDir(),
		PromptsDir:    cfg.Paths.ResolvePromptsDir(),
		AutoSave:      cfg.Interview.AutoSave,
		MaxHistory:    cfg.Interview.MaxHistory,
		Timeout:       cfg.LLM.Timeout(),
		DroneCount:    cfg.Hivemind.DroneCount,
		Grouping:      grouping,
		TaskGroupSize: cfg.Pipeline.TaskGroupSize,
	}
}

func runInterview(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	icfg := interviewConfig(cfg)
	if interviewBackend != "" {
		icfg.Backend = interviewBackend
	}
	if interviewModel != "" {
		icfg.Model = interviewModel
	}
	if interviewDrones > 0 {
		icfg.DroneCount = interviewDrones
	}
	if interviewGrouped {
		icfg.Grouping = pipeline.GroupingGrouped
	}
	if interviewNoStream {
		icfg.Streaming = false
	}

	ctx := cmd.Context()

	mgr, err := interview.NewManager(ctx, icfg, nil, nil, logger)
	if err != nil {
		return fmt.Errorf("failed to start interview: %w", err)
	}

	var printer *streamPrinter
	if icfg.Streaming {
		sink := make(chan string, 64)
		mgr.SetChunkSink(sink)
		printer = &streamPrinter{}
		go printer.run(sink)
	}

	fmt.Println(renderBanner(mgr.Progress().CurrentStageName))

	greeting, err := mgr.Start(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to start interview: %w", err)
	}
	printReply(printer, greeting)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := mgr.Chat(ctx, input)
		if err != nil {
			if printer != nil {
				printer.take()
			}
			fmt.Println(renderError(err))
			continue
		}
		printReply(printer, reply)

		if mgr.IsComplete() {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// printReply prints a manager reply, skipping whatever was already streamed
// to the terminal for this exchange.
func printReply(printer *streamPrinter, reply string) {
	if printer != nil {
		streamed := printer.take()
		if streamed != "" && strings.HasPrefix(reply, streamed) {
			rest := reply[len(streamed):]
			if rest != "" {
				fmt.Print(renderResponse(rest))
			}
			fmt.Println()
			fmt.Println()
			return
		}
	}
	fmt.Println(renderResponse(reply))
	fmt.Println()
}

// streamPrinter echoes chunks to stdout as they arrive and remembers the
// streamed text so the final reply is not printed twice.
type streamPrinter struct {
	mu sync.Mutex
	b  strings.Builder
}

func (p *streamPrinter) run(ch <-chan string) {
	for chunk := range ch {
		fmt.Print(chunk)
		p.mu.Lock()
		p.b.WriteString(chunk)
		p.mu.Unlock()
	}
}

// take returns the text streamed since the last call and resets the buffer.
func (p *streamPrinter) take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.b.String()
	p.b.Reset()
	return s
}
