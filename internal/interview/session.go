package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
	"github.com/Iron-Ham/ralph/internal/logging"
	"github.com/Iron-Ham/ralph/internal/stage"
)

// activeSessionFile marks which session ID resumes by default.
const activeSessionFile = "active_session"

// State is the persisted snapshot of one interview session.
type State struct {
	SessionID    string      `json:"session_id"`
	ProjectName  string      `json:"project_name,omitempty"`
	CurrentStage stage.Stage `json:"current_stage"`
	IsComplete   bool        `json:"is_complete"`
	LastResponse string      `json:"last_response"`
	MessageCount int         `json:"message_count"`
	Config       Config      `json:"config"`
}

// SessionManager persists interview sessions so environments that process
// one message per invocation can resume where they left off.
type SessionManager struct {
	dir     string
	logger  *logging.Logger
	manager *Manager
	state   *State

	// newManager builds the Manager for a session; replaceable in tests.
	newManager func(context.Context, Config) (*Manager, error)
}

// NewSessionManager creates a session manager storing state under dir.
func NewSessionManager(dir string, logger *logging.Logger) (*SessionManager, error) {
	if dir == "" {
		return nil, ralpherrors.NewValidationError("session directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, ralpherrors.Wrap(err, "creating session directory")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	sm := &SessionManager{dir: dir, logger: logger.WithComponent("session")}
	sm.newManager = func(ctx context.Context, cfg Config) (*Manager, error) {
		return NewManager(ctx, cfg, nil, nil, sm.logger)
	}
	return sm, nil
}

func (sm *SessionManager) sessionFile(id string) string {
	return filepath.Join(sm.dir, id+".json")
}

// ActiveSessionID returns the currently active session ID, if any.
func (sm *SessionManager) ActiveSessionID() (string, bool) {
	data, err := os.ReadFile(filepath.Join(sm.dir, activeSessionFile))
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(data))
	return id, id != ""
}

// SetActive marks a session as the active one.
func (sm *SessionManager) SetActive(id string) error {
	if err := os.WriteFile(filepath.Join(sm.dir, activeSessionFile), []byte(id), 0644); err != nil {
		return ralpherrors.NewSessionError("writing active session marker", err).WithSessionID(id)
	}
	return nil
}

// ClearActive removes the active session marker.
func (sm *SessionManager) ClearActive() error {
	err := os.Remove(filepath.Join(sm.dir, activeSessionFile))
	if err != nil && !os.IsNotExist(err) {
		return ralpherrors.NewSessionError("clearing active session marker", err)
	}
	return nil
}

// Exists reports whether a session's state file is present.
func (sm *SessionManager) Exists(id string) bool {
	_, err := os.Stat(sm.sessionFile(id))
	return err == nil
}

// List returns the IDs of every stored session.
func (sm *SessionManager) List() ([]string, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return nil, ralpherrors.Wrap(err, "reading session directory")
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

// State returns the loaded session state, or nil when no session is open.
func (sm *SessionManager) State() *State {
	return sm.state
}

// Save writes the current session state, refreshed from the manager.
func (sm *SessionManager) Save() error {
	if sm.state == nil || sm.manager == nil {
		return ralpherrors.NewSessionError("no session to save", ralpherrors.ErrNoActiveSession)
	}

	sm.state.CurrentStage = sm.manager.CurrentStage()
	sm.state.IsComplete = sm.manager.IsComplete()
	sm.state.ProjectName = sm.manager.ProjectName()

	data, err := json.MarshalIndent(sm.state, "", "  ")
	if err != nil {
		return ralpherrors.NewSessionError("encoding session state", err).WithSessionID(sm.state.SessionID)
	}
	if err := os.WriteFile(sm.sessionFile(sm.state.SessionID), data, 0644); err != nil {
		return ralpherrors.NewSessionError("writing session state", err).WithSessionID(sm.state.SessionID)
	}
	return nil
}

// Load reads a session's state and reconstructs its manager.
func (sm *SessionManager) Load(ctx context.Context, id string) error {
	data, err := os.ReadFile(sm.sessionFile(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ralpherrors.NewSessionError("loading session", ralpherrors.ErrSessionNotFound).WithSessionID(id)
		}
		return ralpherrors.NewSessionError("loading session", err).WithSessionID(id)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return ralpherrors.NewSessionError("decoding session state", ralpherrors.ErrSessionCorrupted).WithSessionID(id)
	}

	manager, err := sm.newManager(ctx, state.Config)
	if err != nil {
		return err
	}
	manager.mu.Lock()
	manager.projectName = state.ProjectName
	manager.mu.Unlock()

	sm.state = &state
	sm.manager = manager
	sm.logger.Info("session loaded", "session", id, "stage", string(state.CurrentStage))
	return nil
}

// Create starts a new session and returns the interview's first response.
func (sm *SessionManager) Create(ctx context.Context, cfg Config, initialMessage string) (string, error) {
	// Streamed output has nowhere to go between invocations.
	cfg.Streaming = false

	manager, err := sm.newManager(ctx, cfg)
	if err != nil {
		return "", err
	}

	id := fmt.Sprintf("session_%d", time.Now().Unix())
	sm.manager = manager
	sm.state = &State{
		SessionID:    id,
		CurrentStage: stage.Interview,
		Config:       cfg,
	}

	if err := sm.SetActive(id); err != nil {
		return "", err
	}

	response, err := manager.Start(ctx, initialMessage)
	if err != nil {
		return "", err
	}

	sm.state.LastResponse = response
	sm.state.MessageCount = 1
	if err := sm.Save(); err != nil {
		return "", err
	}
	sm.logger.Info("session created", "session", id)
	return response, nil
}

// ProcessMessage runs one user message through the open session. On
// completion the active marker is cleared.
func (sm *SessionManager) ProcessMessage(ctx context.Context, message string) (string, error) {
	if sm.manager == nil || sm.state == nil {
		return "", ralpherrors.NewSessionError("process message", ralpherrors.ErrNoActiveSession)
	}

	response, err := sm.manager.Chat(ctx, message)
	if err != nil {
		return "", err
	}

	sm.state.LastResponse = response
	sm.state.MessageCount++
	if err := sm.Save(); err != nil {
		return "", err
	}

	if sm.manager.IsComplete() {
		result := sm.manager.Result()
		if err := sm.ClearActive(); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s\n\nInterview complete! Output saved to: %s", response, result.OutputDir), nil
	}
	return response, nil
}

// ResumeOrCreate resumes the active session when one exists, otherwise
// starts a new one.
func (sm *SessionManager) ResumeOrCreate(ctx context.Context, cfg Config, initialMessage string) (string, error) {
	if id, ok := sm.ActiveSessionID(); ok && sm.Exists(id) {
		if err := sm.Load(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("[Resumed session %s]\n\n%s", id, sm.state.LastResponse), nil
	}
	return sm.Create(ctx, cfg, initialMessage)
}

// Status renders the open session's state for display.
func (sm *SessionManager) Status() string {
	if sm.state == nil || sm.manager == nil {
		return "No active session"
	}

	progress := sm.manager.Progress()
	name := sm.state.ProjectName
	if name == "" {
		name = "Not set"
	}
	return fmt.Sprintf("Session: %s\nProject: %s\nStage: %s\nProgress: %d%%\nMessages: %d\nComplete: %t",
		sm.state.SessionID, name, progress.CurrentStageName,
		progress.ProgressPercent, sm.state.MessageCount, sm.state.IsComplete)
}
