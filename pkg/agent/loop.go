package agent

import (
	"context"
	"fmt"

	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/google/uuid"
)

// State is the loop's position in its session state machine.
type State string

const (
	StateAwaitingModel State = "awaiting_model"
	StateDispatching   State = "dispatching"
	StateDone          State = "done"
	StateAborted       State = "aborted"
)

// Turn records one dispatch: the call the planner proposed and the envelope
// that came back. Turns live only for the session and are discarded with it.
type Turn struct {
	ID     string
	Call   bridge.Request
	Result bridge.Result
}

// Outcome is the terminal state of a session.
type Outcome struct {
	State  State
	Answer string // Final answer text when State is StateDone.
	Reason string // Abort reason when State is StateAborted.
	Turns  []Turn
}

// DefaultTurnBudget bounds dispatches per session when no budget is configured.
const DefaultTurnBudget = 16

// Loop runs sessions against a planner and an invoker. A Loop holds no
// per-session state and may be reused, but individual sessions are strictly
// sequential: the loop suspends only while awaiting the planner and while
// awaiting an invocation result.
type Loop struct {
	Planner Planner
	Invoker Invoker

	// TurnBudget is the maximum number of dispatches per session.
	// Zero means DefaultTurnBudget.
	TurnBudget int
}

// Run executes one session for the given instruction. The returned Outcome
// is always meaningful: Done with the planner's answer, or Aborted with an
// explicit reason. The error is non-nil only for fatal conditions (planner
// failure, unreachable dispatcher, cancellation), in which case the Outcome
// is Aborted with the same reason.
func (l *Loop) Run(ctx context.Context, instruction string) (Outcome, error) {
	budget := l.TurnBudget
	if budget <= 0 {
		budget = DefaultTurnBudget
	}

	menu, err := l.Invoker.Operations(ctx)
	if err != nil {
		return l.abortf(nil, "listing operations: %v", err)
	}

	var turns []Turn

	for {
		if err := ctx.Err(); err != nil {
			return l.abortf(turns, "session cancelled: %v", err)
		}

		decision, err := l.Planner.Plan(ctx, PlanRequest{
			Instruction: instruction,
			Menu:        menu,
			Turns:       turns,
		})
		if err != nil {
			return l.abortf(turns, "planner failed: %v", err)
		}

		if decision.Call == nil {
			return Outcome{State: StateDone, Answer: decision.Answer, Turns: turns}, nil
		}

		if len(turns) >= budget {
			out := Outcome{
				State:  StateAborted,
				Reason: fmt.Sprintf("turn budget of %d exhausted", budget),
				Turns:  turns,
			}

			return out, nil
		}

		result, err := l.Invoker.Invoke(ctx, *decision.Call)
		if err != nil {
			// The dispatcher itself was unreachable. Unlike a Failure
			// envelope, there is no observation to feed back.
			return l.abortf(turns, "invoking %s: %v", decision.Call.Operation, err)
		}

		turns = append(turns, Turn{
			ID:     uuid.NewString(),
			Call:   *decision.Call,
			Result: result,
		})
	}
}

// abortf builds an Aborted outcome and a matching error.
func (l *Loop) abortf(turns []Turn, format string, args ...any) (Outcome, error) {
	reason := fmt.Sprintf(format, args...)
	out := Outcome{State: StateAborted, Reason: reason, Turns: turns}

	return out, fmt.Errorf("agent: %s", reason)
}
