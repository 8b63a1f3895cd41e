package main

import (
	"encoding/json"
	"errors"
	"log"
	"os"

	"github.com/germanamz/opwire/pkg/config"
	"github.com/germanamz/opwire/pkg/transport/httpserver"
	"github.com/germanamz/opwire/pkg/transport/mcpbridge"
)

// runServe hosts the registry over HTTP and WebSocket until interrupted.
func runServe(configPath, listenOverride string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	addr := cfg.Listen
	if listenOverride != "" {
		addr = listenOverride
	}

	dispatcher, cleanup, err := buildDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Printf("opwire: serving %d operations on %s", len(dispatcher.Operations()), addr)

	return httpserver.New(dispatcher).ListenAndServe(ctx, addr)
}

// runOps prints the advertisement array, exactly as GET /operations serves it.
func runOps(configPath string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	dispatcher, cleanup, err := buildDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(dispatcher.Operations())
}

// runMCP serves the registry as an MCP server on stdio.
func runMCP(configPath string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	dispatcher, cleanup, err := buildDispatcher(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpbridge.NewServer("opwire", "0.1.0", dispatcher).Serve(ctx, os.Stdin, os.Stdout)
}

// loadConfig reads and validates the config file. A missing file is fine:
// the zero config serves an empty registry.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.Config{Listen: config.DefaultListen}, nil
		}

		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	return cfg, nil
}
