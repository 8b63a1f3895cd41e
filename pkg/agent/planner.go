// Package agent drives turn-based sessions in which a planner (typically a
// language model) selects operations from an advertised menu, observes their
// envelopes, and eventually produces a final answer. The loop is an explicit
// state machine so turn budgets and cancellation are testable without any
// particular model backend.
package agent

import (
	"context"

	"github.com/germanamz/opwire/pkg/bridge"
)

// PlanRequest is everything a planner sees on one turn: the user's
// instruction, the operation menu, and the transcript so far.
type PlanRequest struct {
	Instruction string
	Menu        []bridge.OpInfo
	Turns       []Turn
}

// Decision is a planner's response for one turn: either a call to make or a
// final answer. Call takes precedence when both are set.
type Decision struct {
	Call   *bridge.Request
	Answer string
}

// Planner proposes zero-or-one operation call per turn, or ends the session
// with a final answer.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (Decision, error)
}

// Invoker reaches the dispatcher, locally or over a transport. An error from
// Invoke means the dispatcher itself was unreachable and is fatal to the
// session; a Failure envelope inside the Result is an ordinary observation.
type Invoker interface {
	Operations(ctx context.Context) ([]bridge.OpInfo, error)
	Invoke(ctx context.Context, req bridge.Request) (bridge.Result, error)
}

// LocalInvoker adapts an in-process dispatcher to the Invoker interface,
// for sessions that do not cross a network boundary.
type LocalInvoker struct {
	Dispatcher *bridge.Dispatcher
}

func (l LocalInvoker) Operations(_ context.Context) ([]bridge.OpInfo, error) {
	return l.Dispatcher.Operations(), nil
}

func (l LocalInvoker) Invoke(ctx context.Context, req bridge.Request) (bridge.Result, error) {
	return l.Dispatcher.Dispatch(ctx, req), nil
}
