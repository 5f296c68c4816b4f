package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/ralph/internal/config"
	"github.com/Iron-Ham/ralph/internal/interview"
	"github.com/Iron-Ham/ralph/internal/util"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage interview sessions",
	Long:  `Commands for listing, resuming, and clearing saved interview sessions.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE:  runSessionsList,
}

var sessionsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session",
	RunE:  runSessionsStatus,
}

var sessionsSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message to the active session",
	Long: `Send a single message to the active interview session, creating one
if none exists. The reply is printed and the session state is saved, so a
conversation can be driven one message at a time from scripts or other tools.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionsSend,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the active session marker",
	RunE:  runSessionsClear,
}

var clearAll bool

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsStatusCmd)
	sessionsCmd.AddCommand(sessionsSendCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)

	sessionsClearCmd.Flags().BoolVar(&clearAll, "all", false, "Remove all saved session state")
}

// sessionManager builds a SessionManager over the configured sessions dir.
func sessionManager(cfg *config.Config) (*interview.SessionManager, func(), error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	sm, err := interview.NewSessionManager(cfg.Paths.ResolveSessionsDir(), logger)
	if err != nil {
		_ = logger.Close()
		return nil, nil, fmt.Errorf("failed to open sessions: %w", err)
	}
	return sm, func() { _ = logger.Close() }, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	sm, closeLogger, err := sessionManager(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	ids, err := sm.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	fmt.Println(strings.Repeat("─", 60))
	fmt.Println("Ralph Sessions")
	fmt.Println(strings.Repeat("─", 60))

	if len(ids) == 0 {
		fmt.Println("\nNo sessions found.")
		fmt.Println("Run 'ralph sessions send <message>' to start one.")
		return nil
	}

	activeID, hasActive := sm.ActiveSessionID()
	for _, id := range ids {
		marker := " "
		if hasActive && id == activeID {
			marker = "*"
		}
		fmt.Printf(" %s %s\n", marker, util.TruncateString(id, 56))
	}
	if hasActive {
		fmt.Println("\n* active session")
	}
	return nil
}

func runSessionsStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	sm, closeLogger, err := sessionManager(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	if id, ok := sm.ActiveSessionID(); ok && sm.Exists(id) {
		if err := sm.Load(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to load session %s: %w", id, err)
		}
	}
	fmt.Println(sm.Status())
	return nil
}

func runSessionsSend(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	sm, closeLogger, err := sessionManager(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	message := strings.Join(args, " ")
	reply, err := sm.ResumeOrCreate(cmd.Context(), interviewConfig(cfg), message)
	if err != nil {
		return err
	}
	fmt.Println(renderResponse(reply))
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	sm, closeLogger, err := sessionManager(cfg)
	if err != nil {
		return err
	}
	defer closeLogger()

	if err := sm.ClearActive(); err != nil {
		return fmt.Errorf("failed to clear active session: %w", err)
	}
	fmt.Println("Active session cleared.")

	if !clearAll {
		return nil
	}

	ids, err := sm.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	dir := cfg.Paths.ResolveSessionsDir()
	for _, id := range ids {
		if err := os.Remove(filepath.Join(dir, id+".json")); err != nil {
			fmt.Printf("Warning: failed to remove %s: %v\n", id, err)
			continue
		}
		fmt.Printf("Removed %s\n", id)
	}
	return nil
}
