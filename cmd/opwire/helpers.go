package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
)

// Styles for the session transcript and outcome.
var (
	opNameStyle = lipgloss.NewStyle().Bold(true)
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim gray
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
)

const treeCorner = "└ "

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}

// renderMarkdown converts markdown to terminal-formatted output. Falls back
// to the raw text if the renderer is unavailable.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}

	return strings.TrimRight(out, "\n")
}

// truncate returns s shortened to at most n runes, with "..." appended if
// truncated. Newlines are replaced with spaces for single-line display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}

// payloadPreview renders a payload for one-line display: strings pass
// through, anything structured is JSON-encoded.
func payloadPreview(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}

	return string(data)
}
