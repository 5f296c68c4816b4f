// Package history stores the conversation across all pipeline stages.
//
// Messages carry the stage they were produced in so later stages can query
// only the context they need. Stage outputs (the structured artifacts
// extracted from model responses) are stored alongside the transcript and
// both persist to a single JSON file.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/ralph/internal/stage"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation transcript.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Stage     stage.Stage    `json:"stage,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LLMMessage is the role/content pair shape expected by chat-style LLM APIs.
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultMaxMessages bounds transcript growth when no limit is configured.
const DefaultMaxMessages = 100

// History manages the conversation transcript and per-stage outputs.
// It is safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages []Message
	outputs  map[stage.Stage]any
	max      int
}

// New creates a History that retains at most max messages, dropping the
// oldest first. max <= 0 uses DefaultMaxMessages.
func New(max int) *History {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	return &History{
		outputs: make(map[stage.Stage]any),
		max:     max,
	}
}

// Add appends a message and returns it. When the transcript exceeds the
// retention limit the oldest messages are dropped.
func (h *History) Add(role Role, content string, s stage.Stage, metadata map[string]any) Message {
	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Stage:     s,
		Metadata:  metadata,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = append(h.messages, msg)
	if len(h.messages) > h.max {
		h.messages = h.messages[len(h.messages)-h.max:]
	}
	return msg
}

// AddUser appends a user message.
func (h *History) AddUser(content string, s stage.Stage) Message {
	return h.Add(RoleUser, content, s, nil)
}

// AddAssistant appends an assistant message.
func (h *History) AddAssistant(content string, s stage.Stage, metadata map[string]any) Message {
	return h.Add(RoleAssistant, content, s, metadata)
}

// AddSystem appends a system message.
func (h *History) AddSystem(content string, s stage.Stage) Message {
	return h.Add(RoleSystem, content, s, nil)
}

// All returns every message in order.
func (h *History) All() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Recent returns the last count messages (all messages when count exceeds
// the transcript length).
func (h *History) Recent(count int) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recentLocked(count)
}

func (h *History) recentLocked(count int) []Message {
	start := 0
	if count >= 0 && count < len(h.messages) {
		start = len(h.messages) - count
	}
	out := make([]Message, len(h.messages)-start)
	copy(out, h.messages[start:])
	return out
}

// ByStage returns all messages recorded during a stage.
func (h *History) ByStage(s stage.Stage) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Message
	for _, m := range h.messages {
		if m.Stage == s {
			out = append(out, m)
		}
	}
	return out
}

// ByRole returns all messages from a role.
func (h *History) ByRole(role Role) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Message
	for _, m := range h.messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// LLMFormatOptions controls which messages LLMFormat includes.
type LLMFormatOptions struct {
	// RecentCount limits output to the last N messages after filtering.
	// Zero means no limit.
	RecentCount int
	// IncludeSystem keeps system messages in the output.
	IncludeSystem bool
	// Stages restricts output to messages from these stages. Empty means
	// all stages.
	Stages []stage.Stage
}

// LLMFormat renders the transcript as role/content pairs for an LLM call.
// Stage filtering happens before the recency cut so the last RecentCount
// messages of the selected stages are returned.
func (h *History) LLMFormat(opts LLMFormatOptions) []LLMMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()

	messages := h.messages

	if len(opts.Stages) > 0 {
		allowed := make(map[stage.Stage]bool, len(opts.Stages))
		for _, s := range opts.Stages {
			allowed[s] = true
		}
		filtered := make([]Message, 0, len(messages))
		for _, m := range messages {
			if allowed[m.Stage] {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	if !opts.IncludeSystem {
		filtered := make([]Message, 0, len(messages))
		for _, m := range messages {
			if m.Role != RoleSystem {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	if opts.RecentCount > 0 && opts.RecentCount < len(messages) {
		messages = messages[len(messages)-opts.RecentCount:]
	}

	out := make([]LLMMessage, len(messages))
	for i, m := range messages {
		out[i] = LLMMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

// SetStageOutput stores the structured artifact extracted for a stage.
func (h *History) SetStageOutput(s stage.Stage, output any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs[s] = output
}

// StageOutput returns the stored artifact for a stage, or nil.
func (h *History) StageOutput(s stage.Stage) any {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.outputs[s]
}

// AllStageOutputs returns a copy of all stored stage outputs.
func (h *History) AllStageOutputs() map[stage.Stage]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[stage.Stage]any, len(h.outputs))
	for k, v := range h.outputs {
		out[k] = v
	}
	return out
}

// ContextSummary renders a compact view of the conversation for prompts that
// cannot carry the full transcript: each stage output (JSON, truncated to
// 500 chars) followed by the last five messages (truncated to 300 chars
// each). The whole summary is capped at roughly maxTokens worth of text
// using a 4-chars-per-token estimate.
func (h *History) ContextSummary(maxTokens int) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var parts []string

	// Walk outputs in pipeline order for deterministic summaries.
	for _, s := range stage.All() {
		output, ok := h.outputs[s]
		if !ok {
			continue
		}

		var text string
		if b, err := json.MarshalIndent(output, "", "  "); err == nil {
			text = string(b)
		} else {
			text = fmt.Sprintf("%v", output)
		}
		parts = append(parts, fmt.Sprintf("[%s OUTPUT]:\n%s", strings.ToUpper(string(s)), truncate(text, 500)))
	}

	for _, m := range h.recentLocked(5) {
		content := m.Content
		if len(content) > 300 {
			content = content[:300] + "..."
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", strings.ToUpper(string(m.Role)), content))
	}

	summary := strings.Join(parts, "\n\n")

	// Rough token estimation (1 token ~ 4 chars).
	maxChars := maxTokens * 4
	if maxChars > 0 && len(summary) > maxChars {
		summary = summary[:maxChars] + "..."
	}
	return summary
}

// Clear removes all messages and stage outputs.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
	h.outputs = make(map[stage.Stage]any)
}

// ClearFromStage drops the transcript from the first message of the given
// stage onward and removes that stage's stored output. Used when the user
// redoes a stage.
func (h *History) ClearFromStage(s stage.Stage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, m := range h.messages {
		if m.Stage == s {
			h.messages = h.messages[:i]
			delete(h.outputs, s)
			return
		}
	}
}

// persisted is the on-disk shape of a conversation.
type persisted struct {
	Messages     []Message           `json:"messages"`
	StageOutputs map[stage.Stage]any `json:"stage_outputs"`
}

// Save writes the conversation to a JSON file, creating parent directories
// as needed.
func (h *History) Save(path string) error {
	h.mu.RLock()
	data := persisted{
		Messages:     append([]Message(nil), h.messages...),
		StageOutputs: make(map[stage.Stage]any, len(h.outputs)),
	}
	for k, v := range h.outputs {
		data.StageOutputs[k] = v
	}
	h.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create conversation directory: %w", err)
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write conversation file: %w", err)
	}
	return nil
}

// Load replaces the conversation with the contents of a JSON file.
func (h *History) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read conversation file: %w", err)
	}

	var data persisted
	if err := json.Unmarshal(b, &data); err != nil {
		return fmt.Errorf("failed to parse conversation file: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.messages = data.Messages
	h.outputs = data.StageOutputs
	if h.outputs == nil {
		h.outputs = make(map[stage.Stage]any)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
