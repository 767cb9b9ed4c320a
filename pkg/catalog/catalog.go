// Package catalog renders the tools of a toolbox as listings and schema
// snapshots.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// Entry is the listing of one tool.
type Entry struct {
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Source       string             `json:"source,omitempty"`
	Async        bool               `json:"async"`
	InputSchema  *jsonschema.Schema `json:"inputSchema"`
	OutputSchema *jsonschema.Schema `json:"outputSchema"`
}

// FromTools converts tools to entries, keeping their order.
func FromTools(tools []toolbox.Tool) []Entry {
	entries := make([]Entry, 0, len(tools))
	for _, t := range tools {
		entries = append(entries, Entry{
			Name:         t.Name,
			Description:  t.Description,
			Source:       t.Source,
			Async:        t.Async,
			InputSchema:  t.InputSchema,
			OutputSchema: t.OutputSchema,
		})
	}

	return entries
}

// Build lists every tool in tb, sorted by name.
func Build(tb *toolbox.ToolBox) []Entry {
	return FromTools(tb.Tools())
}

// Format selects how entries are written.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatMarkdown}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		f = FormatMarkdown
	}
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("catalog: unknown format %q", s)
	}

	return f, nil
}

// Write renders entries to w in the given format. width bounds the table
// width; zero means unbounded.
func Write(w io.Writer, entries []Entry, f Format, width int) error {
	var (
		out []byte
		err error
	)

	switch f {
	case FormatJSON:
		out, err = JSON(entries)
	case FormatYAML:
		out, err = YAML(entries)
	case FormatMarkdown:
		out = []byte(Markdown(entries))
	case FormatTable:
		out = []byte(Table(entries, width))
	default:
		return fmt.Errorf("catalog: unknown format %q", f)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(out)
	return err
}

// JSON renders entries as indented JSON.
func JSON(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal json: %w", err)
	}

	return append(out, '\n'), nil
}

// YAML renders entries as YAML. Property order follows the JSON rendering.
func YAML(entries []Entry) ([]byte, error) {
	raw, err := JSON(entries)
	if err != nil {
		return nil, err
	}

	// JSON is valid YAML, so decoding into a node keeps key order.
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	clearStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("catalog: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("catalog: encode yaml: %w", err)
	}

	return buf.Bytes(), nil
}

// clearStyle drops the flow and quoting styles inherited from JSON.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
