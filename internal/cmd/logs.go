package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/Iron-Ham/ralph/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View and filter ralph logs",
	Long: `View, filter, and export logs written by ralph.

Logs are aggregated from the debug log under the ralph data directory
and can be narrowed by level, time, component, stage, or message text.

Examples:
  # Show the last 50 entries
  ralph logs

  # Show all entries at warn or above
  ralph logs -n 0 --level warn

  # Show entries from the last hour mentioning "extraction"
  ralph logs --since 1h --contains extraction

  # Export the design stage's entries as CSV
  ralph logs --stage design --export stage.csv --format csv`,
	RunE: runLogs,
}

var (
	logsTail      int
	logsLevel     string
	logsSince     string
	logsComponent string
	logsStage     string
	logsSession   string
	logsContains  string
	logsExport    string
	logsFormat    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component")
	logsCmd.Flags().StringVar(&logsStage, "stage", "", "Filter by stage")
	logsCmd.Flags().StringVarP(&logsSession, "session", "s", "", "Filter by session ID")
	logsCmd.Flags().StringVar(&logsContains, "contains", "", "Filter by message substring")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write matching entries to a file instead of stdout")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format (json/text/csv)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	logDir := filepath.Join(config.DataDir(), "logs")

	entries, err := logging.AggregateLogs(logDir)
	if err != nil {
		fmt.Println("No logs found.")
		fmt.Println("Logs are stored at:", filepath.Join(logDir, "debug.log"))
		return nil
	}

	filter, err := buildLogFilter()
	if err != nil {
		return err
	}
	entries = logging.FilterLogs(entries, filter)

	if len(entries) == 0 {
		fmt.Println("No log entries match the given filters.")
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return fmt.Errorf("failed to export logs: %w", err)
		}
		fmt.Printf("Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	for i := range entries {
		fmt.Println(formatLogEntry(&entries[i]))
	}

	return nil
}

// buildLogFilter translates the command flags into a logging.LogFilter.
func buildLogFilter() (logging.LogFilter, error) {
	filter := logging.LogFilter{
		Component:       logsComponent,
		Stage:           logsStage,
		SessionID:       logsSession,
		MessageContains: logsContains,
	}

	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}

	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return filter, fmt.Errorf("invalid --since duration %q: %w", logsSince, err)
		}
		filter.StartTime = time.Now().Add(-d)
	}

	return filter, nil
}

var logLevelStyles = map[string]lipgloss.Style{
	logging.LevelDebug: mutedStyle,
	logging.LevelInfo:  promptStyle,
	logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F39C12")),
	logging.LevelError: errorStyle,
}

// formatLogEntry renders one log entry as a single terminal line.
func formatLogEntry(entry *logging.LogEntry) string {
	var b strings.Builder

	b.WriteString(mutedStyle.Render("[" + entry.Timestamp.Format("15:04:05.000") + "]"))

	level := strings.ToUpper(entry.Level)
	style, ok := logLevelStyles[level]
	if !ok {
		style = assistantStyle
	}
	b.WriteString(" ")
	b.WriteString(style.Render("[" + level + "]"))

	b.WriteString(" ")
	b.WriteString(entry.Message)

	if entry.SessionID != "" {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("session=" + entry.SessionID))
	}
	if entry.Component != "" {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("component=" + entry.Component))
	}
	if entry.Stage != "" {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("stage=" + entry.Stage))
	}
	for key, value := range entry.Attrs {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render(key + "="))
		b.WriteString(fmt.Sprintf("%v", value))
	}

	return b.String()
}
