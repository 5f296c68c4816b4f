package interview

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

func newTestSessionManager(t *testing.T, dir string) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(dir, nil)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	sm.newManager = func(ctx context.Context, cfg Config) (*Manager, error) {
		return NewManager(ctx, cfg, scriptedClient(), nil, nil)
	}
	return sm
}

func TestNewSessionManagerRequiresDir(t *testing.T) {
	if _, err := NewSessionManager("", nil); err == nil {
		t.Error("empty dir accepted")
	}
}

func TestSessionCreate(t *testing.T) {
	dir := t.TempDir()
	sm := newTestSessionManager(t, dir)

	response, err := sm.Create(context.Background(), Config{SaveDir: t.TempDir()}, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if response != "Tell me more about your project." {
		t.Errorf("response = %q", response)
	}

	state := sm.State()
	if state == nil {
		t.Fatal("no state after create")
	}
	if !strings.HasPrefix(state.SessionID, "session_") {
		t.Errorf("session id = %q", state.SessionID)
	}
	if state.MessageCount != 1 {
		t.Errorf("message count = %d", state.MessageCount)
	}

	if _, err := os.Stat(filepath.Join(dir, state.SessionID+".json")); err != nil {
		t.Errorf("state file: %v", err)
	}
	id, ok := sm.ActiveSessionID()
	if !ok || id != state.SessionID {
		t.Errorf("active id = %q, ok = %v", id, ok)
	}
}

func TestSessionProcessMessage(t *testing.T) {
	sm := newTestSessionManager(t, t.TempDir())

	if _, err := sm.Create(context.Background(), Config{SaveDir: t.TempDir()}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sm.ProcessMessage(context.Background(), "a task tracker in Go"); err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if sm.State().MessageCount != 2 {
		t.Errorf("message count = %d", sm.State().MessageCount)
	}
}

func TestSessionProcessMessageWithoutSession(t *testing.T) {
	sm := newTestSessionManager(t, t.TempDir())

	_, err := sm.ProcessMessage(context.Background(), "hello")
	if !ralpherrors.Is(err, ralpherrors.ErrNoActiveSession) {
		t.Errorf("err = %v", err)
	}
}

func TestSessionResumeOrCreate(t *testing.T) {
	dir := t.TempDir()
	saveDir := t.TempDir()
	ctx := context.Background()

	first := newTestSessionManager(t, dir)
	created, err := first.ResumeOrCreate(ctx, Config{SaveDir: saveDir}, "")
	if err != nil {
		t.Fatalf("ResumeOrCreate (create): %v", err)
	}
	if strings.Contains(created, "[Resumed session") {
		t.Errorf("fresh directory resumed: %q", created)
	}
	id := first.State().SessionID

	// A new manager over the same directory resumes the active session.
	second := newTestSessionManager(t, dir)
	resumed, err := second.ResumeOrCreate(ctx, Config{SaveDir: saveDir}, "")
	if err != nil {
		t.Fatalf("ResumeOrCreate (resume): %v", err)
	}
	if !strings.Contains(resumed, "[Resumed session "+id+"]") {
		t.Errorf("resumed = %q", resumed)
	}
	if !strings.Contains(resumed, "Tell me more about your project.") {
		t.Errorf("resumed missing last response: %q", resumed)
	}
}

func TestSessionLoadNotFound(t *testing.T) {
	sm := newTestSessionManager(t, t.TempDir())

	err := sm.Load(context.Background(), "session_12345")
	if !ralpherrors.Is(err, ralpherrors.ErrSessionNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestSessionLoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	sm := newTestSessionManager(t, dir)
	if err := os.WriteFile(filepath.Join(dir, "session_1.json"), []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	err := sm.Load(context.Background(), "session_1")
	if !ralpherrors.Is(err, ralpherrors.ErrSessionCorrupted) {
		t.Errorf("err = %v", err)
	}
}

func TestSessionList(t *testing.T) {
	dir := t.TempDir()
	sm := newTestSessionManager(t, dir)

	if _, err := sm.Create(context.Background(), Config{SaveDir: t.TempDir()}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ids, err := sm.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 1 || ids[0] != sm.State().SessionID {
		t.Errorf("ids = %v", ids)
	}
}

func TestSessionCompletionClearsActive(t *testing.T) {
	dir := t.TempDir()
	sm := newTestSessionManager(t, dir)
	ctx := context.Background()

	if _, err := sm.Create(ctx, Config{SaveDir: t.TempDir()}, "I want to build demo"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sm.ProcessMessage(ctx, "/done"); err != nil {
		t.Fatalf("first /done: %v", err)
	}

	out, err := sm.ProcessMessage(ctx, "/done")
	if err != nil {
		t.Fatalf("final /done: %v", err)
	}
	if !strings.Contains(out, "Interview complete! Output saved to:") {
		t.Errorf("out = %q", out)
	}
	if _, ok := sm.ActiveSessionID(); ok {
		t.Error("active marker not cleared after completion")
	}
	if !sm.State().IsComplete {
		t.Error("state not marked complete")
	}
}

func TestSessionStatus(t *testing.T) {
	sm := newTestSessionManager(t, t.TempDir())

	if sm.Status() != "No active session" {
		t.Errorf("status = %q", sm.Status())
	}

	if _, err := sm.Create(context.Background(), Config{SaveDir: t.TempDir()}, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	status := sm.Status()
	if !strings.Contains(status, "Session: session_") {
		t.Errorf("status = %q", status)
	}
	if !strings.Contains(status, "Messages: 1") {
		t.Errorf("status = %q", status)
	}
}
