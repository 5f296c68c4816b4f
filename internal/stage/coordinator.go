package stage

import (
	"fmt"
	"sync"

	"github.com/Iron-Ham/ralph/internal/logging"
)

// Progress is a point-in-time snapshot of pipeline progress.
type Progress struct {
	CurrentStage     Stage   `json:"current_stage"`
	CurrentStageName string  `json:"current_stage_name"`
	CompletedStages  []Stage `json:"completed_stages"`
	CompletedCount   int     `json:"completed_count"`
	TotalStages      int     `json:"total_stages"`
	ProgressPercent  int     `json:"progress_percent"`
	IsComplete       bool    `json:"is_complete"`
}

// ChangeFunc is called with the old and new stage after every transition.
type ChangeFunc func(old, new Stage)

// Coordinator tracks the current stage, completion state, and per-stage
// outputs, and enforces predecessor gating on every transition.
//
// There is always exactly one current stage. Transitions that cannot happen
// (current stage incomplete, predecessors missing, already at the last
// stage) are no-ops.
//
// Coordinator is safe for concurrent use.
type Coordinator struct {
	mu        sync.RWMutex
	current   Stage
	completed []Stage
	configs   map[Stage]Config
	outputs   map[Stage]any
	onChange  ChangeFunc
	logger    *logging.Logger
}

// NewCoordinator creates a Coordinator starting at the interview stage.
// System prompts are loaded from promptsDir (empty uses embedded defaults).
// A nil logger is replaced with a no-op logger.
func NewCoordinator(promptsDir string, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{
		current: Interview,
		configs: DefaultConfigs(promptsDir),
		outputs: make(map[Stage]any),
		logger:  logger.WithComponent("stage"),
	}
}

// Current returns the current stage.
func (c *Coordinator) Current() Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Completed returns the completed stages in completion order.
func (c *Coordinator) Completed() []Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Stage, len(c.completed))
	copy(out, c.completed)
	return out
}

// IsComplete reports whether the whole pipeline has finished, which is the
// case once the handoff stage is complete.
func (c *Coordinator) IsComplete() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCompleteLocked(Handoff)
}

// Config returns the configuration for a stage. An unknown stage returns a
// zero-value Config.
func (c *Coordinator) Config(s Stage) Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configs[s]
}

// CurrentConfig returns the configuration for the current stage.
func (c *Coordinator) CurrentConfig() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.configs[c.current]
}

// SystemPrompt returns the system prompt for a stage.
func (c *Coordinator) SystemPrompt(s Stage) string {
	return c.Config(s).SystemPrompt
}

// SetOutput stores the artifact produced by a stage.
func (c *Coordinator) SetOutput(s Stage, output any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[s] = output
}

// Output returns the artifact produced by a stage, or nil when the stage has
// not produced one.
func (c *Coordinator) Output(s Stage) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outputs[s]
}

// ContextFor collects the context a stage's generation needs: the stage
// identity plus the outputs of every required predecessor, keyed
// "{stage}_output". Predecessors with no stored output are omitted.
func (c *Coordinator) ContextFor(s Stage) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ctx := map[string]any{
		"stage":      string(s),
		"stage_name": s.DisplayName(),
	}

	for _, req := range c.configs[s].RequiresPrevious {
		if output, ok := c.outputs[req]; ok && output != nil {
			ctx[fmt.Sprintf("%s_output", req)] = output
		}
	}

	return ctx
}

// MarkComplete records a stage as complete, optionally storing its output.
// Marking an already-complete stage again is a no-op (the output is still
// updated when non-nil).
func (c *Coordinator) MarkComplete(s Stage, output any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCompleteLocked(s) {
		c.completed = append(c.completed, s)
		c.logger.Info("stage complete", "stage", string(s))
	}

	if output != nil {
		c.outputs[s] = output
	}
}

// CanAdvance reports whether the current stage is complete and a next stage
// exists.
func (c *Coordinator) CanAdvance() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.isCompleteLocked(c.current) {
		return false
	}
	_, ok := c.current.Next()
	return ok
}

// Advance moves to the next stage if the current stage is complete and the
// next stage's predecessors are all satisfied. It returns the new stage and
// true on success; otherwise it returns the zero Stage and false without
// changing state.
func (c *Coordinator) Advance() (Stage, bool) {
	c.mu.Lock()

	if !c.isCompleteLocked(c.current) {
		c.mu.Unlock()
		return "", false
	}

	next, ok := c.current.Next()
	if !ok {
		c.mu.Unlock()
		return "", false
	}

	for _, req := range c.configs[next].RequiresPrevious {
		if !c.isCompleteLocked(req) {
			c.mu.Unlock()
			return "", false
		}
	}

	old := c.current
	c.current = next
	onChange := c.onChange
	c.logger.Info("stage advanced", "from", string(old), "to", string(next))
	c.mu.Unlock()

	if onChange != nil {
		onChange(old, next)
	}
	return next, true
}

// GoTo jumps directly to a stage, allowed only when all of that stage's
// required predecessors are complete. Returns false (no-op) otherwise.
func (c *Coordinator) GoTo(s Stage) bool {
	if !s.Valid() {
		return false
	}

	c.mu.Lock()

	for _, req := range c.configs[s].RequiresPrevious {
		if !c.isCompleteLocked(req) {
			c.mu.Unlock()
			return false
		}
	}

	old := c.current
	c.current = s
	onChange := c.onChange
	c.logger.Info("stage jump", "from", string(old), "to", string(s))
	c.mu.Unlock()

	if onChange != nil {
		onChange(old, s)
	}
	return true
}

// Reset returns the coordinator to its initial state: interview stage, no
// completions, no outputs.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = Interview
	c.completed = c.completed[:0]
	c.outputs = make(map[Stage]any)
}

// ResetFrom clears completion state and outputs for the given stage and
// every stage after it, and rewinds the current pointer to that stage.
// An unknown stage is a no-op.
func (c *Coordinator) ResetFrom(s Stage) {
	idx := s.index()
	if idx < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, clear := range order[idx:] {
		for i, done := range c.completed {
			if done == clear {
				c.completed = append(c.completed[:i], c.completed[i+1:]...)
				break
			}
		}
		delete(c.outputs, clear)
	}

	c.current = s
	c.logger.Info("stages reset", "from", string(s))
}

// OnChange registers a callback invoked after every stage transition.
func (c *Coordinator) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Progress returns a snapshot of pipeline progress.
func (c *Coordinator) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()

	completed := make([]Stage, len(c.completed))
	copy(completed, c.completed)

	total := len(order)
	percent := 0
	if total > 0 {
		percent = len(completed) * 100 / total
	}

	return Progress{
		CurrentStage:     c.current,
		CurrentStageName: c.current.DisplayName(),
		CompletedStages:  completed,
		CompletedCount:   len(completed),
		TotalStages:      total,
		ProgressPercent:  percent,
		IsComplete:       c.isCompleteLocked(Handoff),
	}
}

// isCompleteLocked reports completion of a single stage. Caller holds mu.
func (c *Coordinator) isCompleteLocked(s Stage) bool {
	for _, done := range c.completed {
		if done == s {
			return true
		}
	}
	return false
}
