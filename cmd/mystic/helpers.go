package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/germanamz/mystic/pkg/engine"
)

const defaultConfigFile = "mystic.yaml"

// loadDotEnv loads environment variables from path. A missing file is not an
// error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// resolveConfigPath returns the configuration file to load: the explicit path,
// else mystic.yaml when present. An empty result means built-in defaults.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}

	return ""
}

// loadConfig loads the resolved configuration file or falls back to defaults.
func loadConfig(explicit string) (engine.Config, error) {
	path := resolveConfigPath(explicit)
	if path == "" {
		return engine.DefaultConfig(), nil
	}

	return engine.LoadConfig(path)
}

// terminalWidth returns the width of stdout, or fallback when it is not a
// terminal.
func terminalWidth(fallback int) int {
	fd := int(os.Stdout.Fd()) //nolint:gosec // file descriptors fit in int
	if !term.IsTerminal(fd) {
		return fallback
	}

	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return fallback
	}

	return w
}

// renderMarkdown converts markdown text to terminal-formatted output. The text
// is returned unchanged if rendering fails.
func renderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}

	out, err := r.Render(text)
	if err != nil {
		return text
	}

	return out
}

// parseArguments checks that raw is a JSON object and returns it. An empty
// string means no arguments.
func parseArguments(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	return json.RawMessage(raw), nil
}

// colorDiff styles a unified diff line by line.
func colorDiff(diff string) string {
	lines := strings.Split(strings.TrimRight(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = toolNameStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = diffHunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = diffAddStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = diffDelStyle.Render(line)
		}
	}

	return strings.Join(lines, "\n") + "\n"
}
