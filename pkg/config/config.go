// Package config loads the YAML configuration shared by the server and
// agent commands. Environment variables referenced as ${VAR} or $VAR are
// expanded before parsing, so API keys can live in the environment (e.g.
// loaded from a .env file) instead of the config file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Listen   string         `yaml:"listen"`      // Host:port for the HTTP/WebSocket listener.
	Agent    AgentConfig    `yaml:"agent"`       // Agent loop settings.
	Planner  PlannerConfig  `yaml:"planner"`     // Model backend settings.
	Servers  []ServerConfig `yaml:"mcp_servers"` // Remote MCP servers to import.
	Toolsets ToolsetsConfig `yaml:"toolsets"`    // Built-in toolset toggles.
	Invoke   InvokeConfig   `yaml:"invoke"`      // Per-invocation settings.
}

// AgentConfig holds agent loop settings.
type AgentConfig struct {
	TurnBudget   int    `yaml:"turn_budget"`   // Max dispatches per session (0 = library default).
	SystemPrompt string `yaml:"system_prompt"` // Optional system prompt for the planner.
}

// PlannerConfig describes the model backend.
type PlannerConfig struct {
	Kind    string `yaml:"kind"` // "openai" or "anthropic".
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"` //nolint:gosec // configuration field, not a hardcoded secret
	Model   string `yaml:"model"`
}

// ServerConfig describes one remote MCP server whose tools are imported
// into the registry under the given name prefix.
type ServerConfig struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"` // SSE endpoint; mutually exclusive with Command.
}

// ToolsetsConfig toggles the built-in toolsets.
type ToolsetsConfig struct {
	Text    bool `yaml:"text"`
	Webpage bool `yaml:"webpage"`
	Headed  bool `yaml:"headed"` // Run Chrome with a visible window.
}

// InvokeConfig holds per-invocation settings.
type InvokeConfig struct {
	Timeout string `yaml:"timeout"` // Duration string, e.g. "30s"; empty means no bound.
}

// DefaultListen is used when the config does not set a listen address.
const DefaultListen = "127.0.0.1:7433"

// Load reads a YAML file and returns a Config with environment variables
// expanded.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided configuration, not user input
	if err != nil {
		return Config{}, fmt.Errorf("config: load: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}

	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Planner.Kind != "" {
		switch c.Planner.Kind {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("config: unknown planner kind %q", c.Planner.Kind)
		}
		if c.Planner.Model == "" {
			return fmt.Errorf("config: planner %q: model is required", c.Planner.Kind)
		}
	}

	names := make(map[string]struct{}, len(c.Servers))
	for _, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("config: mcp server name is required")
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("config: duplicate mcp server name %q", s.Name)
		}
		names[s.Name] = struct{}{}

		if s.Command == "" && s.URL == "" {
			return fmt.Errorf("config: mcp server %q: command or url is required", s.Name)
		}
		if s.Command != "" && s.URL != "" {
			return fmt.Errorf("config: mcp server %q: command and url are mutually exclusive", s.Name)
		}
	}

	if _, err := c.InvokeTimeout(); err != nil {
		return err
	}

	return nil
}

// InvokeTimeout parses the invocation timeout. Zero means no bound.
func (c Config) InvokeTimeout() (time.Duration, error) {
	if c.Invoke.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Invoke.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: invoke timeout: %w", err)
	}

	return d, nil
}
