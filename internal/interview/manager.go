// Package interview runs the chat-driven requirements interview and
// carries the conversation through every pipeline stage. The Manager is
// the interactive surface: it routes slash commands, keeps the transcript,
// and triggers artifact generation as stages complete. SessionManager
// wraps it for one-message-at-a-time environments where state must
// persist across invocations.
package interview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
	"github.com/Iron-Ham/ralph/internal/extract"
	"github.com/Iron-Ham/ralph/internal/history"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
	"github.com/Iron-Ham/ralph/internal/pipeline"
	"github.com/Iron-Ham/ralph/internal/stage"
)

// Config holds the interview settings. SaveDir must be set before anything
// can be saved; there is no ambient default.
type Config struct {
	Backend   string `json:"backend,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	ServerURL string `json:"server_url,omitempty"`
	Streaming bool   `json:"streaming"`
	SaveDir   string `json:"save_dir"`
	// PromptsDir overrides the embedded stage system prompts.
	PromptsDir string        `json:"prompts_dir,omitempty"`
	AutoSave   bool          `json:"auto_save"`
	MaxHistory int           `json:"max_history,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`

	// DroneCount enables hivemind generation for detailed steps when > 1.
	DroneCount    int               `json:"drone_count,omitempty"`
	Grouping      pipeline.Grouping `json:"grouping,omitempty"`
	TaskGroupSize int               `json:"task_group_size,omitempty"`
}

// Result collects everything an interview produced.
type Result struct {
	ProjectName      string
	Requirements     pipeline.Requirements
	Design           *pipeline.Design
	DevPlan          *pipeline.DevPlan
	Handoff          *pipeline.Handoff
	OutputDir        string
	ConversationFile string
}

// Command is one slash command with its help text.
type Command struct {
	Name        string
	Description string
}

// Commands lists every slash command in /help order.
var Commands = []Command{
	{"/done", "Signal that current stage is complete"},
	{"/skip", "Skip current question"},
	{"/back", "Go back to previous stage"},
	{"/status", "Show current progress"},
	{"/help", "Show available commands"},
	{"/save", "Save current progress"},
	{"/reset", "Reset to beginning"},
	{"/model", "Show or change model"},
	{"/stage", "Show current stage info"},
}

// Manager orchestrates the chat interview across all pipeline stages.
type Manager struct {
	cfg         Config
	client      llm.Client
	limiter     *concurrency.Limiter
	history     *history.History
	coordinator *stage.Coordinator
	extractor   *extract.Extractor
	logger      *logging.Logger

	mu           sync.Mutex
	projectName  string
	raw          map[string]any
	requirements pipeline.Requirements
	design       *pipeline.Design
	plan         *pipeline.DevPlan
	handoff      *pipeline.Handoff
	outputDir    string

	chunks chan<- string
	now    func() time.Time
}

// NewManager creates a Manager. A nil client is built from the config's
// backend settings; a nil limiter gets the default limit.
func NewManager(ctx context.Context, cfg Config, client llm.Client, limiter *concurrency.Limiter, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if client == nil {
		var err error
		client, err = llm.NewFromConfig(ctx, llm.Config{
			Backend:   cfg.Backend,
			Provider:  cfg.Provider,
			Model:     cfg.Model,
			ServerURL: cfg.ServerURL,
			Timeout:   cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
	}
	if limiter == nil {
		limiter = concurrency.NewLimiter(concurrency.DefaultLimit)
	}

	return &Manager{
		cfg:         cfg,
		client:      client,
		limiter:     limiter,
		history:     history.New(cfg.MaxHistory),
		coordinator: stage.NewCoordinator(cfg.PromptsDir, logger),
		extractor:   extract.New(),
		logger:      logger.WithComponent("interview"),
		raw:         make(map[string]any),
		now:         time.Now,
	}, nil
}

// SetChunkSink directs streamed response text into ch. The channel is only
// used when streaming is enabled in the config; the caller owns it and
// must drain it.
func (m *Manager) SetChunkSink(ch chan<- string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = ch
}

// OnStageChange registers a callback fired after every stage transition.
func (m *Manager) OnStageChange(fn stage.ChangeFunc) {
	m.coordinator.OnChange(fn)
}

// CurrentStage returns the active stage.
func (m *Manager) CurrentStage() stage.Stage {
	return m.coordinator.Current()
}

// IsComplete reports whether the whole interview has finished.
func (m *Manager) IsComplete() bool {
	return m.coordinator.IsComplete()
}

// ProjectName returns the project name once known.
func (m *Manager) ProjectName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectName
}

// Progress returns a snapshot of stage progress.
func (m *Manager) Progress() stage.Progress {
	return m.coordinator.Progress()
}

// Start opens the interview. With an initial message it behaves like Chat;
// without one it generates a greeting.
func (m *Manager) Start(ctx context.Context, initialMessage string) (string, error) {
	m.history.AddSystem(m.coordinator.SystemPrompt(stage.Interview), stage.Interview)

	if initialMessage != "" {
		return m.Chat(ctx, initialMessage)
	}

	response, err := m.generate(ctx, stage.Interview,
		"Start the conversation by introducing yourself briefly and asking the user about their project.")
	if err != nil {
		return "", err
	}
	m.history.AddAssistant(response, stage.Interview, nil)
	return response, nil
}

// Chat processes one user message: a slash command or stage conversation.
func (m *Manager) Chat(ctx context.Context, userMessage string) (string, error) {
	if strings.HasPrefix(userMessage, "/") {
		return m.command(ctx, userMessage)
	}

	current := m.coordinator.Current()
	m.history.AddUser(userMessage, current)

	switch current {
	case stage.Interview:
		return m.chatInterview(ctx)
	case stage.Design:
		return m.chatFeedback(ctx, userMessage, current,
			"Please update the project design based on this feedback.")
	case stage.Devplan:
		return m.chatFeedback(ctx, userMessage, current,
			"Please update the development plan accordingly.")
	case stage.Detailed:
		return m.chatFeedback(ctx, userMessage, current,
			"Please update the detailed implementation steps accordingly.")
	case stage.Handoff:
		return m.chatFeedback(ctx, userMessage, current,
			"Please update the handoff prompt accordingly.")
	}
	return m.generate(ctx, current, userMessage)
}

// chatInterview continues the requirements conversation, opportunistically
// extracting structured fields from each response.
func (m *Manager) chatInterview(ctx context.Context) (string, error) {
	messages := m.history.LLMFormat(history.LLMFormatOptions{
		RecentCount:   20,
		IncludeSystem: true,
	})

	var b strings.Builder
	for _, msg := range messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", strings.ToUpper(msg.Role), msg.Content)
	}
	b.WriteString("[ASSISTANT]\n")

	response, err := m.generate(ctx, stage.Interview, b.String())
	if err != nil {
		return "", err
	}
	m.history.AddAssistant(response, stage.Interview, nil)

	if extracted := m.extractor.InterviewData(response); len(extracted) > 0 {
		m.mu.Lock()
		for k, v := range extracted {
			m.raw[k] = v
		}
		if name, ok := extracted["project_name"].(string); ok && name != "" {
			m.projectName = name
		}
		m.mu.Unlock()
	}
	return response, nil
}

// chatFeedback regenerates a stage artifact response from user feedback.
// Only the design stage reparses the result into its artifact; later
// stages keep the typed artifacts from their generators.
func (m *Manager) chatFeedback(ctx context.Context, userMessage string, s stage.Stage, instruction string) (string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return fmt.Sprintf("%s stage ready. Type /done to proceed or provide feedback.", s.DisplayName()), nil
	}

	reqJSON, _ := pipeline.ToJSON(m.snapshotRequirements())
	prompt := fmt.Sprintf("The user has provided feedback:\n%q\n\n%s\n\nPrevious context:\n%s",
		userMessage, instruction, reqJSON)

	response, err := m.generate(ctx, s, prompt)
	if err != nil {
		return "", err
	}
	m.history.AddAssistant(response, s, nil)

	if s == stage.Design {
		design := pipeline.ParseDesign(response, m.ProjectName())
		m.mu.Lock()
		m.design = design
		m.mu.Unlock()
		m.history.SetStageOutput(stage.Design, design)
	}
	return response, nil
}

// command dispatches a slash command.
func (m *Manager) command(ctx context.Context, input string) (string, error) {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	switch name {
	case "/done":
		return m.completeStage(ctx)

	case "/skip":
		return "Question skipped. Let me ask you something else.", nil

	case "/back":
		prev, ok := m.coordinator.Current().Prev()
		if !ok {
			return "You're already at the first stage.", nil
		}
		m.coordinator.ResetFrom(prev)
		return fmt.Sprintf("Going back to %s. What would you like to change?", prev.DisplayName()), nil

	case "/status":
		progress := m.coordinator.Progress()
		name := m.ProjectName()
		if name == "" {
			name = "Not yet named"
		}
		return fmt.Sprintf("Current Progress:\n- Stage: %s\n- Completed: %d/%d stages\n- Progress: %d%%\n- Project: %s",
			progress.CurrentStageName, progress.CompletedCount, progress.TotalStages,
			progress.ProgressPercent, name), nil

	case "/help":
		var b strings.Builder
		b.WriteString("Available commands:\n")
		for _, c := range Commands {
			fmt.Fprintf(&b, "  %s - %s\n", c.Name, c.Description)
		}
		return b.String(), nil

	case "/save":
		dir, err := m.saveProgress()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Progress saved to %s", dir), nil

	case "/reset":
		m.coordinator.Reset()
		m.history.Clear()
		m.mu.Lock()
		m.raw = make(map[string]any)
		m.requirements = pipeline.Requirements{}
		m.design = nil
		m.plan = nil
		m.handoff = nil
		m.mu.Unlock()
		return "Reset complete. Let's start over. Tell me about your project.", nil

	case "/model":
		if args == "" {
			return fmt.Sprintf("Current model: %s/%s", m.cfg.Provider, m.cfg.Model), nil
		}
		provider, model, found := strings.Cut(args, "/")
		if !found {
			provider, model = m.cfg.Provider, args
		}
		client, err := llm.NewFromConfig(ctx, llm.Config{
			Backend:   m.cfg.Backend,
			Provider:  provider,
			Model:     model,
			ServerURL: m.cfg.ServerURL,
			Timeout:   m.cfg.Timeout,
		})
		if err != nil {
			return "", err
		}
		m.mu.Lock()
		m.cfg.Provider = provider
		m.cfg.Model = model
		m.client = client
		m.mu.Unlock()
		return fmt.Sprintf("Model changed to %s/%s", provider, model), nil

	case "/stage":
		s := m.coordinator.Current()
		next := "None (final stage)"
		if n, ok := s.Next(); ok {
			next = n.DisplayName()
		}
		return fmt.Sprintf("Current Stage: %s\nDescription: %s\nNext Stage: %s",
			s.DisplayName(), s.Description(), next), nil
	}

	return fmt.Sprintf("Unknown command: %s. Type /help for available commands.", name), nil
}

// completeStage finishes the current stage and generates forward through
// every auto-advance stage that follows.
func (m *Manager) completeStage(ctx context.Context) (string, error) {
	current := m.coordinator.Current()

	switch current {
	case stage.Interview:
		if err := m.finalizeRequirements(ctx); err != nil {
			return "", err
		}
		m.coordinator.MarkComplete(stage.Interview, m.snapshotRequirements())

	case stage.Design:
		m.mu.Lock()
		design := m.design
		m.mu.Unlock()
		m.coordinator.MarkComplete(stage.Design, design)

	case stage.Devplan:
		m.mu.Lock()
		plan := m.plan
		m.mu.Unlock()
		m.coordinator.MarkComplete(stage.Devplan, plan)

	case stage.Detailed:
		m.mu.Lock()
		plan := m.plan
		m.mu.Unlock()
		m.coordinator.MarkComplete(stage.Detailed, plan)

	case stage.Handoff:
		m.mu.Lock()
		handoff := m.handoff
		m.mu.Unlock()
		m.coordinator.MarkComplete(stage.Handoff, handoff)

		dir, err := m.saveProgress()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`Interview complete!

All artifacts have been saved to: %s

Generated files:
- conversation.json - Full conversation history
- requirements.json - Extracted requirements
- design.json - Project design
- devplan.json - Development plan
- handoff.md - Handoff prompt for implementation

You can now use the handoff prompt with an implementation agent.`, dir), nil
	}

	return m.generateForward(ctx)
}

// generateForward advances and generates artifacts until it reaches a
// stage that waits for the user.
func (m *Manager) generateForward(ctx context.Context) (string, error) {
	var parts []string
	for {
		next, ok := m.coordinator.Advance()
		if !ok {
			break
		}

		text, err := m.generateArtifact(ctx, next)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)

		if !m.coordinator.Config(next).AutoAdvance {
			break
		}
		m.markArtifactComplete(next)
	}

	if len(parts) == 0 {
		return fmt.Sprintf("Stage %s completed.", m.coordinator.Current().DisplayName()), nil
	}
	return strings.Join(parts, "\n\n"), nil
}

func (m *Manager) markArtifactComplete(s stage.Stage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch s {
	case stage.Design:
		m.coordinator.MarkComplete(s, m.design)
	case stage.Devplan, stage.Detailed:
		m.coordinator.MarkComplete(s, m.plan)
	case stage.Handoff:
		m.coordinator.MarkComplete(s, m.handoff)
	default:
		m.coordinator.MarkComplete(s, nil)
	}
}

// generateArtifact produces the artifact for one stage and returns the
// user-facing text.
func (m *Manager) generateArtifact(ctx context.Context, s stage.Stage) (string, error) {
	m.history.AddSystem(m.coordinator.SystemPrompt(s), s)
	cfg := m.coordinator.Config(s)
	opts := pipeline.GenerateOptions{
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		Grouping:      m.cfg.Grouping,
		TaskGroupSize: m.cfg.TaskGroupSize,
	}

	switch s {
	case stage.Design:
		gen := pipeline.NewDesignGenerator(m.client, m.logger)
		design, err := gen.Generate(ctx, m.snapshotRequirements(), opts)
		if err != nil {
			return "", ralpherrors.Wrap(err, "design generation failed")
		}
		m.mu.Lock()
		m.design = design
		m.mu.Unlock()
		m.history.AddAssistant(design.RawResponse, s, nil)
		m.history.SetStageOutput(s, design)
		return fmt.Sprintf("Project Design Generated:\n\n%s\n\nReview the design above. You can:\n- Provide feedback to refine it\n- Type /done to accept and proceed", design.RawResponse), nil

	case stage.Devplan:
		m.mu.Lock()
		design := m.design
		m.mu.Unlock()
		if design == nil {
			design = &pipeline.Design{ProjectName: m.ProjectName()}
		}
		gen := pipeline.NewDevPlanGenerator(m.client, m.logger)
		plan, err := gen.Generate(ctx, design, opts)
		if err != nil {
			return "", ralpherrors.Wrap(err, "devplan generation failed")
		}
		m.mu.Lock()
		m.plan = plan
		m.mu.Unlock()
		m.history.SetStageOutput(s, plan)

		var b strings.Builder
		fmt.Fprintf(&b, "Development Plan Generated (%d phases):\n", len(plan.Phases))
		for _, p := range plan.Phases {
			fmt.Fprintf(&b, "\n**Phase %d: %s**", p.Number, p.Title)
			if p.Description != "" {
				fmt.Fprintf(&b, "\n%s", p.Description)
			}
		}
		b.WriteString("\n\nReview the plan above. You can:\n- Provide feedback to refine it\n- Type /done to accept and proceed")
		return b.String(), nil

	case stage.Detailed:
		m.mu.Lock()
		plan, design := m.plan, m.design
		m.mu.Unlock()
		if plan == nil {
			return "", ralpherrors.NewStageError("no devplan to detail", ralpherrors.ErrStageBlocked).WithStage(string(s))
		}
		if design == nil {
			design = &pipeline.Design{ProjectName: m.ProjectName()}
		}
		gen := pipeline.NewDetailedGenerator(m.client, m.limiter, m.logger)
		gen.DroneCount = m.cfg.DroneCount
		detailed, err := gen.Generate(ctx, plan, design, opts)
		if err != nil {
			return "", ralpherrors.Wrap(err, "detailed generation failed")
		}
		m.mu.Lock()
		m.plan = detailed
		m.mu.Unlock()
		m.history.SetStageOutput(s, detailed)

		steps := 0
		for _, p := range detailed.Phases {
			steps += len(p.Steps)
		}
		return fmt.Sprintf("Detailed Implementation Steps Generated: %d steps across %d phases.\n\nReview them. You can:\n- Provide feedback to refine them\n- Type /done to accept and proceed",
			steps, len(detailed.Phases)), nil

	case stage.Handoff:
		m.mu.Lock()
		plan := m.plan
		m.mu.Unlock()
		if plan == nil {
			return "", ralpherrors.NewStageError("no devplan for handoff", ralpherrors.ErrStageBlocked).WithStage(string(s))
		}
		gen := &pipeline.HandoffGenerator{}
		handoff, err := gen.Generate(plan, m.cfg.TaskGroupSize)
		if err != nil {
			return "", ralpherrors.Wrap(err, "handoff generation failed")
		}
		m.mu.Lock()
		m.handoff = handoff
		m.mu.Unlock()
		m.history.AddAssistant(handoff.Content, s, nil)
		m.history.SetStageOutput(s, handoff)
		return fmt.Sprintf("Handoff Prompt Generated:\n\n%s\n\nReview the handoff prompt above. You can:\n- Provide feedback to refine it\n- Type /done to finalize and save all artifacts", handoff.Content), nil
	}

	return "", ralpherrors.NewStageError("no generator for stage", ralpherrors.ErrUnknownStage).WithStage(string(s))
}

// finalizeRequirements closes the interview stage. When nothing has been
// extracted during the conversation, one strict-JSON re-prompt over the
// transcript is attempted before falling back to an empty set.
func (m *Manager) finalizeRequirements(ctx context.Context) error {
	m.mu.Lock()
	empty := len(m.raw) == 0
	m.mu.Unlock()

	if empty {
		transcript := m.history.LLMFormat(history.LLMFormatOptions{IncludeSystem: false})
		transcriptJSON, _ := pipeline.ToJSON(transcript)
		prompt := fmt.Sprintf(`Based on this conversation, extract the project requirements as JSON:

%s

Output a JSON object with: project_name, description, languages, frameworks, apis, requirements, constraints`, transcriptJSON)

		response, err := m.generate(ctx, stage.Interview, prompt)
		if err != nil {
			return err
		}
		if extracted, err := m.extractor.Object(response); err == nil {
			m.mu.Lock()
			m.raw = extracted
			m.mu.Unlock()
		} else {
			m.logger.Warn("requirements extraction failed", "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.projectName == "" {
		if name, ok := m.raw["project_name"].(string); ok && name != "" {
			m.projectName = name
		} else {
			m.projectName = "untitled-project"
		}
	}
	m.requirements = requirementsFromMap(m.raw, m.projectName)
	return nil
}

func (m *Manager) snapshotRequirements() pipeline.Requirements {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requirements.ProjectName == "" {
		m.requirements = requirementsFromMap(m.raw, m.projectName)
	}
	return m.requirements
}

// generate runs one LLM call with the stage's temperature and token
// budget, streaming through the chunk sink when one is set.
func (m *Manager) generate(ctx context.Context, s stage.Stage, prompt string) (string, error) {
	cfg := m.coordinator.Config(s)
	req := llm.Request{
		Prompt:      prompt,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	m.mu.Lock()
	client := m.client
	sink := m.chunks
	streaming := m.cfg.Streaming && sink != nil
	m.mu.Unlock()

	if !streaming {
		return client.Generate(ctx, req)
	}

	stream, err := client.GenerateStream(ctx, req)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		b.WriteString(chunk.Text)
		select {
		case sink <- chunk.Text:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return b.String(), nil
}

// saveProgress writes every artifact produced so far under
// {SaveDir}/{project}_{timestamp}.
func (m *Manager) saveProgress() (string, error) {
	if m.cfg.SaveDir == "" {
		return "", ralpherrors.NewValidationError("save directory is required")
	}

	m.mu.Lock()
	name := m.projectName
	if name == "" {
		name = "untitled-project"
		m.projectName = name
	}
	design, plan, handoff := m.design, m.plan, m.handoff
	requirements := m.requirements
	m.mu.Unlock()

	dir := filepath.Join(m.cfg.SaveDir, fmt.Sprintf("%s_%s", name, m.now().Format("20060102_150405")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", ralpherrors.Wrap(err, "creating save directory")
	}

	if err := m.history.Save(filepath.Join(dir, "conversation.json")); err != nil {
		return "", err
	}

	write := func(file string, v any) error {
		data, err := pipeline.ToJSON(v)
		if err != nil {
			return ralpherrors.Wrapf(err, "encoding %s", file)
		}
		if err := os.WriteFile(filepath.Join(dir, file), data, 0644); err != nil {
			return ralpherrors.Wrapf(err, "writing %s", file)
		}
		return nil
	}

	if err := write("requirements.json", requirements); err != nil {
		return "", err
	}
	if design != nil {
		if err := write("design.json", design); err != nil {
			return "", err
		}
	}
	if plan != nil {
		if err := write("devplan.json", plan); err != nil {
			return "", err
		}
	}
	if handoff != nil {
		if err := os.WriteFile(filepath.Join(dir, "handoff.md"), []byte(handoff.Content), 0644); err != nil {
			return "", ralpherrors.Wrap(err, "writing handoff.md")
		}
	}

	m.mu.Lock()
	m.outputDir = dir
	m.mu.Unlock()
	m.logger.Info("progress saved", "dir", dir)
	return dir, nil
}

// Result returns everything generated so far.
func (m *Manager) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.projectName
	if name == "" {
		name = "untitled-project"
	}
	result := Result{
		ProjectName:  name,
		Requirements: m.requirements,
		Design:       m.design,
		DevPlan:      m.plan,
		Handoff:      m.handoff,
		OutputDir:    m.outputDir,
	}
	if m.outputDir != "" {
		result.ConversationFile = filepath.Join(m.outputDir, "conversation.json")
	}
	return result
}

// requirementsFromMap shapes the accumulated interview fields into the
// pipeline's requirements artifact.
func requirementsFromMap(raw map[string]any, projectName string) pipeline.Requirements {
	req := pipeline.Requirements{ProjectName: projectName}

	if name, ok := raw["project_name"].(string); ok && name != "" {
		req.ProjectName = name
	}
	req.Languages = stringList(raw["languages"])
	req.Frameworks = stringList(raw["frameworks"])
	req.APIs = stringList(raw["apis"])

	switch v := raw["requirements"].(type) {
	case string:
		req.Requirements = v
	case []any, []string:
		req.Requirements = strings.Join(stringList(v), "; ")
	}
	return req
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	return nil
}
