package cmd

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/ralph/internal/util"
	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5DADE2"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E74C3C"))
)

// renderBanner prints the interview header with the active stage.
func renderBanner(stageName string) string {
	var b strings.Builder
	b.WriteString(bannerStyle.Render("Ralph"))
	b.WriteString(mutedStyle.Render(" — development plan interview"))
	b.WriteString("\n")
	b.WriteString(stageStyle.Render("Stage: " + stageName))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", 60)))
	return b.String()
}

// renderResponse styles an assistant reply for the terminal.
func renderResponse(text string) string {
	return assistantStyle.Render(text)
}

// renderError styles an error for the terminal.
func renderError(err error) string {
	return errorStyle.Render("Error: " + err.Error())
}

// renderProgress renders a single-line progress bar for pipeline runs.
func renderProgress(stage string, progress float64, message string) string {
	const width = 24
	filled := int(progress * width)
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s [%s] %3.0f%% %s",
		stageStyle.Render(fmt.Sprintf("%-10s", stage)),
		bar,
		progress*100,
		mutedStyle.Render(util.TruncateANSI(message, 48)))
}
