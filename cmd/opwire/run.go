package main

import (
	"fmt"
	"os"

	"github.com/germanamz/opwire/pkg/agent"
	"github.com/germanamz/opwire/pkg/config"
	"github.com/germanamz/opwire/pkg/planner/anthropic"
	"github.com/germanamz/opwire/pkg/planner/openai"
	"github.com/germanamz/opwire/pkg/transport/httpclient"
)

// runAgent executes one session and prints the outcome. With remote set, the
// session invokes operations on a running opwire server over a WebSocket
// session; otherwise the registry is built in-process.
func runAgent(configPath, remote, instruction string, verbose bool) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	planner, err := newPlanner(cfg)
	if err != nil {
		return err
	}

	var invoker agent.Invoker
	if remote != "" {
		session, err := httpclient.New(remote).Session(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		invoker = session
	} else {
		dispatcher, cleanup, err := buildDispatcher(ctx, cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		invoker = agent.LocalInvoker{Dispatcher: dispatcher}
	}

	loop := &agent.Loop{
		Planner:    planner,
		Invoker:    invoker,
		TurnBudget: cfg.Agent.TurnBudget,
	}

	outcome, err := loop.Run(ctx, instruction)

	if verbose {
		printTurns(outcome.Turns)
	}

	if err != nil {
		return err
	}

	if outcome.State == agent.StateAborted {
		return fmt.Errorf("session aborted: %s", outcome.Reason)
	}

	fmt.Println(renderMarkdown(outcome.Answer))

	return nil
}

// newPlanner builds the model backend named by the config.
func newPlanner(cfg config.Config) (agent.Planner, error) {
	switch cfg.Planner.Kind {
	case "openai":
		p := openai.New(cfg.Planner.BaseURL, cfg.Planner.APIKey, cfg.Planner.Model)
		p.SystemPrompt = cfg.Agent.SystemPrompt

		return p, nil
	case "anthropic":
		p := anthropic.New(cfg.Planner.BaseURL, cfg.Planner.APIKey, cfg.Planner.Model)
		p.SystemPrompt = cfg.Agent.SystemPrompt

		return p, nil
	case "":
		return nil, fmt.Errorf("no planner configured (set planner.kind to openai or anthropic)")
	default:
		return nil, fmt.Errorf("unknown planner kind %q", cfg.Planner.Kind)
	}
}

// printTurns writes the session transcript to stderr, one line per call plus
// an indented result line.
func printTurns(turns []agent.Turn) {
	for _, turn := range turns {
		fmt.Fprintln(os.Stderr, opNameStyle.Render("→ "+turn.Call.Operation))

		if turn.Result.OK {
			fmt.Fprintln(os.Stderr, resultStyle.Render(treeCorner+truncate(payloadPreview(turn.Result.Payload), 120)))
		} else {
			fmt.Fprintln(os.Stderr, errStyle.Render(treeCorner+string(turn.Result.Kind)+": "+truncate(turn.Result.Message, 120)))
		}
	}
}
