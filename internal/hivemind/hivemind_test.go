package hivemind

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/ralph/internal/concurrency"
	"github.com/Iron-Ham/ralph/internal/llm"
)

// fakeClient records every request and answers from a script.
type fakeClient struct {
	mu       sync.Mutex
	requests []llm.Request
	respond  func(req llm.Request) (string, error)
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeClient) GenerateStream(ctx context.Context, req llm.Request) (<-chan llm.Chunk, error) {
	ch := make(chan llm.Chunk, 1)
	text, err := f.Generate(ctx, req)
	if err != nil {
		ch <- llm.Chunk{Err: err}
	} else {
		ch <- llm.Chunk{Text: text}
	}
	close(ch)
	return ch, nil
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) recorded() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func TestDroneTemperature(t *testing.T) {
	tests := []struct {
		name  string
		base  float64
		i     int
		count int
		want  float64
	}{
		{name: "single drone uses base", base: 0.7, i: 0, count: 1, want: 0.7},
		{name: "first of three", base: 0.7, i: 0, count: 3, want: 0.5},
		{name: "middle of three", base: 0.7, i: 1, count: 3, want: 0.7},
		{name: "last of three", base: 0.7, i: 2, count: 3, want: 0.9},
		{name: "clamped at zero", base: 0.1, i: 0, count: 2, want: 0},
		{name: "clamped at two", base: 1.95, i: 1, count: 2, want: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DroneTemperature(tc.base, tc.i, tc.count)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("DroneTemperature(%v, %d, %d) = %v, want %v", tc.base, tc.i, tc.count, got, tc.want)
			}
		})
	}
}

func TestRunSingleDroneBypassesArbiter(t *testing.T) {
	client := &fakeClient{respond: func(llm.Request) (string, error) { return "direct", nil }}
	swarm := New(client, nil, nil)

	result, err := swarm.Run(context.Background(), llm.Request{Prompt: "p", Temperature: 0.7}, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "direct" {
		t.Errorf("result = %q", result)
	}
	if len(client.recorded()) != 1 {
		t.Errorf("made %d calls, want 1", len(client.recorded()))
	}
}

func TestRunSwarmAndArbiter(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "CANDIDATE RESPONSES") {
			return "synthesized", nil
		}
		return "drone output", nil
	}}
	swarm := New(client, concurrency.NewLimiter(2), nil)

	result, err := swarm.Run(context.Background(), llm.Request{Prompt: "plan the project", Temperature: 0.7}, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "synthesized" {
		t.Errorf("result = %q", result)
	}

	reqs := client.recorded()
	if len(reqs) != 4 {
		t.Fatalf("made %d calls, want 3 drones + 1 arbiter", len(reqs))
	}

	// Drone temperatures cover the spread around the base.
	temps := map[float64]bool{}
	for _, r := range reqs[:3] {
		temps[math.Round(r.Temperature*100)/100] = true
	}
	for _, want := range []float64{0.5, 0.7, 0.9} {
		if !temps[want] {
			t.Errorf("missing drone temperature %v in %v", want, temps)
		}
	}

	arbiter := reqs[3]
	if arbiter.Temperature != ArbiterTemperature {
		t.Errorf("arbiter temperature = %v, want %v", arbiter.Temperature, ArbiterTemperature)
	}
	if !strings.Contains(arbiter.Prompt, "plan the project") {
		t.Error("arbiter prompt missing original prompt")
	}
	if !strings.Contains(arbiter.Prompt, "Candidate 3") {
		t.Error("arbiter prompt missing tagged drone output")
	}
}

func TestRunDroneFailureFailsRun(t *testing.T) {
	boom := errors.New("drone down")
	var calls int
	var mu sync.Mutex

	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 2 {
			return "", boom
		}
		return "ok", nil
	}}
	swarm := New(client, concurrency.NewLimiter(1), nil)

	_, err := swarm.Run(context.Background(), llm.Request{Prompt: "p", Temperature: 0.7}, 3)
	if err == nil {
		t.Fatal("expected error when a drone fails")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped drone error", err)
	}

	// The arbiter never ran.
	for _, r := range client.recorded() {
		if strings.Contains(r.Prompt, "CANDIDATE RESPONSES") {
			t.Error("arbiter called despite drone failure")
		}
	}
}

func TestRunArbiterFailure(t *testing.T) {
	client := &fakeClient{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "CANDIDATE RESPONSES") {
			return "", errors.New("arbiter down")
		}
		return "drone output", nil
	}}
	swarm := New(client, nil, nil)

	if _, err := swarm.Run(context.Background(), llm.Request{Prompt: "p", Temperature: 0.7}, 2); err == nil {
		t.Fatal("expected arbiter error")
	}
}
