// Package hivemind runs swarm generation: several drone calls answer the
// same prompt at staggered temperatures, and an arbiter call synthesizes
// one response from all of them. The spread trades tokens for diversity,
// which measurably helps on open-ended planning prompts.
package hivemind

import (
	"context"
	"strings"
	"text/template"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
	"github.com/Iron-Ham/ralph/internal/llm"
	"github.com/Iron-Ham/ralph/internal/logging"
)

// ArbiterTemperature keeps the synthesis call conservative regardless of
// the drone spread.
const ArbiterTemperature = 0.2

// temperatureSpread is the total jitter range across the drone set.
const temperatureSpread = 0.4

// DroneOutput is one drone's response, tagged for the arbiter prompt.
type DroneOutput struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
}

var arbiterTemplate = template.Must(template.New("arbiter").Parse(
	`You are an arbiter synthesizing multiple candidate responses to the same prompt.

ORIGINAL PROMPT:
{{.OriginalPrompt}}

CANDIDATE RESPONSES:
{{range .Drones}}
--- Candidate {{.ID}} ---
{{.Content}}
{{end}}
Produce a single response that combines the strongest elements of the
candidates. Follow the format requested by the original prompt exactly.
Do not mention the candidates or this synthesis process.`))

// Swarm coordinates drone and arbiter calls over a shared client and
// concurrency limiter.
type Swarm struct {
	client  llm.Client
	limiter *concurrency.Limiter
	logger  *logging.Logger
}

// New creates a Swarm. A nil limiter runs drones unbounded; a nil logger
// discards output.
func New(client llm.Client, limiter *concurrency.Limiter, logger *logging.Logger) *Swarm {
	if limiter == nil {
		limiter = concurrency.NewLimiter(0)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Swarm{
		client:  client,
		limiter: limiter,
		logger:  logger.WithComponent("hivemind"),
	}
}

// Run sends req to count drones in parallel and returns the arbiter's
// synthesis of their outputs. Any drone failure fails the whole run:
// a partial swarm would bias the arbiter toward whichever temperatures
// happened to survive. count < 2 degrades to a single direct call.
func (s *Swarm) Run(ctx context.Context, req llm.Request, count int) (string, error) {
	if count < 2 {
		return s.client.Generate(ctx, req)
	}

	s.logger.Debug("starting swarm", "drones", count, "base_temperature", req.Temperature)

	fns := make([]func(context.Context) (string, error), count)
	for i := range count {
		droneReq := req
		droneReq.Temperature = DroneTemperature(req.Temperature, i, count)
		fns[i] = func(ctx context.Context) (string, error) {
			return s.client.Generate(ctx, droneReq)
		}
	}

	responses, err := concurrency.Gather(ctx, s.limiter, fns)
	if err != nil {
		return "", ralpherrors.Wrap(err, "drone generation failed")
	}

	drones := make([]DroneOutput, count)
	for i, resp := range responses {
		drones[i] = DroneOutput{ID: i + 1, Content: resp}
	}

	arbiterPrompt, err := renderArbiterPrompt(req.Prompt, drones)
	if err != nil {
		return "", err
	}

	arbiterReq := req
	arbiterReq.Prompt = arbiterPrompt
	arbiterReq.Temperature = ArbiterTemperature

	s.logger.Debug("calling arbiter", "drones", count)
	result, err := s.client.Generate(ctx, arbiterReq)
	if err != nil {
		return "", ralpherrors.Wrap(err, "arbiter synthesis failed")
	}
	return result, nil
}

// DroneTemperature spreads drone i of count evenly across
// [base-0.2, base+0.2], clamped to the valid [0, 2] range.
func DroneTemperature(base float64, i, count int) float64 {
	if count < 2 {
		return base
	}
	offset := (float64(i)/float64(count-1) - 0.5) * temperatureSpread
	temp := base + offset
	if temp < 0 {
		return 0
	}
	if temp > 2 {
		return 2
	}
	return temp
}

func renderArbiterPrompt(originalPrompt string, drones []DroneOutput) (string, error) {
	var b strings.Builder
	err := arbiterTemplate.Execute(&b, struct {
		OriginalPrompt string
		Drones         []DroneOutput
	}{OriginalPrompt: originalPrompt, Drones: drones})
	if err != nil {
		return "", ralpherrors.Wrap(err, "rendering arbiter prompt")
	}
	return b.String(), nil
}
