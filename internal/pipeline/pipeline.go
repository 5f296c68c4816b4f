package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
)

// Progress reports pipeline advancement to the caller. Progress runs from
// 0.1 (design starting) to 1.0 (artifacts written).
type Progress struct {
	Stage    string  `json:"stage"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// Result collects every artifact of a full pipeline run.
type Result struct {
	ProjectName  string
	Requirements Requirements
	Design       *Design
	DevPlan      *DevPlan
	Handoff      *Handoff
	OutputDir    string
}

// Options configures a Pipeline.
type Options struct {
	// OutputDir is where artifact directories are created. Required for
	// SaveArtifacts; RunFromRequirements fails without it.
	OutputDir string
	// Grouping selects flat or grouped task organization.
	Grouping Grouping
	// TaskGroupSize bounds tasks per group and handoff next-steps.
	TaskGroupSize int
	// DroneCount enables hivemind detailed generation when > 1.
	DroneCount int
	// ValidateDesign runs the rule-based correction loop on the generated
	// design before the devplan stage.
	ValidateDesign bool
	// DepthLevel scopes the design validation checks ("minimal" rejects
	// heavyweight architecture). Ignored unless ValidateDesign is set.
	DepthLevel string
	// Design/DevPlan/Detailed hold the per-stage LLM settings.
	Design   GenerateOptions
	DevPlan  GenerateOptions
	Detailed GenerateOptions
}

// Pipeline chains the generators: design → devplan → detailed → handoff.
type Pipeline struct {
	design     *DesignGenerator
	devplan    *DevPlanGenerator
	detailed   *DetailedGenerator
	handoff    *HandoffGenerator
	opts       Options
	logger     *logging.Logger
	onProgress func(Progress)

	now func() time.Time
}

// New creates a Pipeline over a shared client and limiter.
func New(client llm.Client, limiter *concurrency.Limiter, logger *logging.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = logging.NopLogger()
	}
	detailed := NewDetailedGenerator(client, limiter, logger)
	detailed.DroneCount = opts.DroneCount

	return &Pipeline{
		design:   NewDesignGenerator(client, logger),
		devplan:  NewDevPlanGenerator(client, logger),
		detailed: detailed,
		handoff:  &HandoffGenerator{},
		opts:     opts,
		logger:   logger.WithComponent("pipeline"),
		now:      time.Now,
	}
}

// OnProgress registers the progress callback.
func (p *Pipeline) OnProgress(fn func(Progress)) {
	p.onProgress = fn
}

func (p *Pipeline) notify(stage string, progress float64, message string) {
	p.logger.Debug("progress", "stage", stage, "progress", progress, "message", message)
	if p.onProgress != nil {
		p.onProgress(Progress{Stage: stage, Progress: progress, Message: message})
	}
}

// RunFromRequirements runs the full pipeline from extracted requirements
// and writes all artifacts to a timestamped directory under OutputDir.
func (p *Pipeline) RunFromRequirements(ctx context.Context, req Requirements) (*Result, error) {
	if req.ProjectName == "" {
		return nil, ralpherrors.NewValidationError("project name is required")
	}
	if p.opts.OutputDir == "" {
		return nil, ralpherrors.NewValidationError("output directory is required")
	}

	stageOpts := func(o GenerateOptions) GenerateOptions {
		o.Grouping = p.opts.Grouping
		o.TaskGroupSize = p.opts.TaskGroupSize
		return o
	}

	p.notify("design", 0.1, "Generating project design...")
	design, err := p.design.Generate(ctx, req, stageOpts(p.opts.Design))
	if err != nil {
		return nil, ralpherrors.Wrap(err, "design generation failed")
	}
	if p.opts.ValidateDesign {
		p.notify("design", 0.22, "Validating design...")
		correction := CorrectDesign(design.RawResponse, &ComplexityProfile{DepthLevel: p.opts.DepthLevel})
		design.RawResponse = correction.DesignText
		if correction.RequiresHumanReview {
			p.logger.Warn("design needs human review",
				"issues", len(correction.Validation.Issues),
				"iterations", correction.IterationsUsed)
		} else if correction.MaxIterationsReached {
			p.logger.Warn("design correction hit iteration cap",
				"issues", len(correction.Validation.Issues))
		}
	}
	p.notify("design", 0.25, "Design complete")

	p.notify("devplan", 0.3, "Generating development plan...")
	basic, err := p.devplan.Generate(ctx, design, stageOpts(p.opts.DevPlan))
	if err != nil {
		return nil, ralpherrors.Wrap(err, "devplan generation failed")
	}
	p.notify("devplan", 0.5, "Basic devplan complete")

	p.notify("detailed", 0.55, "Generating detailed steps...")
	totalPhases := len(basic.Phases)
	p.detailed.OnPhaseComplete(func(result PhaseResult) {
		progress := 0.55 + 0.25*float64(result.Phase.Number)/float64(totalPhases)
		p.notify("detailed", progress, fmt.Sprintf("Phase %d detailed", result.Phase.Number))
	})
	detailed, err := p.detailed.Generate(ctx, basic, design, stageOpts(p.opts.Detailed))
	if err != nil {
		return nil, ralpherrors.Wrap(err, "detailed generation failed")
	}
	p.notify("detailed", 0.8, "Detailed steps complete")

	p.notify("handoff", 0.85, "Generating handoff prompt...")
	handoff, err := p.handoff.Generate(detailed, p.opts.TaskGroupSize)
	if err != nil {
		return nil, ralpherrors.Wrap(err, "handoff generation failed")
	}
	p.notify("handoff", 0.95, "Handoff complete")

	result := &Result{
		ProjectName:  req.ProjectName,
		Requirements: req,
		Design:       design,
		DevPlan:      detailed,
		Handoff:      handoff,
	}
	if err := p.SaveArtifacts(result); err != nil {
		return nil, err
	}

	p.notify("complete", 1.0, "Pipeline complete!")
	return result, nil
}

// SaveArtifacts writes every artifact of a run to a fresh
// {project}_{timestamp} directory and records it in result.OutputDir.
func (p *Pipeline) SaveArtifacts(result *Result) error {
	timestamp := p.now().Format("20060102_150405")
	dir := filepath.Join(p.opts.OutputDir, fmt.Sprintf("%s_%s", result.ProjectName, timestamp))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ralpherrors.Wrap(err, "creating output directory")
	}

	write := func(name string, v any) error {
		b, err := ToJSON(v)
		if err != nil {
			return ralpherrors.Wrapf(err, "encoding %s", name)
		}
		if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
			return ralpherrors.Wrapf(err, "writing %s", name)
		}
		return nil
	}

	if err := write("requirements.json", result.Requirements); err != nil {
		return err
	}
	if result.Design != nil {
		if err := write("design.json", result.Design); err != nil {
			return err
		}
		if result.Design.RawResponse != "" {
			if err := os.WriteFile(filepath.Join(dir, "design.md"), []byte(result.Design.RawResponse), 0644); err != nil {
				return ralpherrors.Wrap(err, "writing design.md")
			}
		}
	}
	if result.DevPlan != nil {
		if err := write("devplan.json", result.DevPlan); err != nil {
			return err
		}
	}
	if result.Handoff != nil {
		if err := os.WriteFile(filepath.Join(dir, "handoff.md"), []byte(result.Handoff.Content), 0644); err != nil {
			return ralpherrors.Wrap(err, "writing handoff.md")
		}
		if err := write("handoff.json", result.Handoff); err != nil {
			return err
		}
	}

	result.OutputDir = dir
	p.logger.Info("artifacts saved", "dir", dir)
	return nil
}
