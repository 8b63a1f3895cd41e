// Package plannertest provides a deterministic scripted planner for testing
// agent loops without a model backend.
package plannertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/germanamz/opwire/pkg/agent"
)

// Step configures one planner turn in a scripted sequence.
type Step struct {
	Decision agent.Decision
	Err      error
}

// Scripted replays a fixed sequence of decisions, one per Plan call. It
// fails loudly when the script is exhausted, which usually means the loop
// took more turns than the test expected.
type Scripted struct {
	mu    sync.Mutex
	index int
	steps []Step

	// Requests records the PlanRequest of every Plan call, for assertions
	// on what the planner was shown.
	Requests []agent.PlanRequest
}

// NewScripted creates a Scripted planner from the given steps.
func NewScripted(steps ...Step) *Scripted {
	cloned := make([]Step, len(steps))
	copy(cloned, steps)

	return &Scripted{steps: cloned}
}

var _ agent.Planner = (*Scripted)(nil)

// Plan returns the next scripted decision.
func (s *Scripted) Plan(_ context.Context, req agent.PlanRequest) (agent.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)

	if s.index >= len(s.steps) {
		return agent.Decision{}, fmt.Errorf("plannertest: script exhausted at turn %d", s.index+1)
	}

	step := s.steps[s.index]
	s.index++

	if step.Err != nil {
		return agent.Decision{}, step.Err
	}

	return step.Decision, nil
}

// Calls returns how many times Plan was invoked.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.Requests)
}
