package main

import (
	"context"
	"fmt"

	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/germanamz/opwire/pkg/config"
	"github.com/germanamz/opwire/pkg/ops"
	"github.com/germanamz/opwire/pkg/toolsets/textops"
	"github.com/germanamz/opwire/pkg/toolsets/webpage"
	"github.com/germanamz/opwire/pkg/transport/mcpbridge"
)

// buildDispatcher assembles the registry from the configured toolsets and
// MCP imports and wraps it in a dispatcher. The returned cleanup releases
// browser processes and MCP sessions; call it when the dispatcher is done.
func buildDispatcher(ctx context.Context, cfg config.Config) (*bridge.Dispatcher, func(), error) {
	registry := ops.NewRegistry()

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if cfg.Toolsets.Text {
		if err := registry.Register(textops.Specs()...); err != nil {
			return nil, nil, fmt.Errorf("registering text operations: %w", err)
		}
	}

	if cfg.Toolsets.Webpage {
		var opts []webpage.Option
		if !cfg.Toolsets.Headed {
			opts = append(opts, webpage.WithHeadless())
		}

		ts := webpage.New(ctx, opts...)
		cleanups = append(cleanups, ts.Close)

		if err := registry.Register(ts.Specs()...); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("registering page operations: %w", err)
		}
	}

	for _, sc := range cfg.Servers {
		client, err := connectServer(ctx, sc)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connecting to %q: %w", sc.Name, err)
		}
		cleanups = append(cleanups, func() { _ = client.Close() })

		specs, err := client.Specs(ctx, sc.Name)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("importing tools from %q: %w", sc.Name, err)
		}

		if err := registry.Register(specs...); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("registering tools from %q: %w", sc.Name, err)
		}
	}

	timeout, err := cfg.InvokeTimeout()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	var dopts []bridge.Option
	if timeout > 0 {
		dopts = append(dopts, bridge.WithTimeout(timeout))
	}

	return bridge.NewDispatcher(registry, dopts...), cleanup, nil
}

func connectServer(ctx context.Context, sc config.ServerConfig) (*mcpbridge.Client, error) {
	if sc.URL != "" {
		return mcpbridge.NewSSE(ctx, sc.URL)
	}

	return mcpbridge.NewCommand(ctx, sc.Command, sc.Args...)
}
