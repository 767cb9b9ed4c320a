package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrDrift is returned by Check when the stored snapshot differs from the
// current schemas.
var ErrDrift = errors.New("catalog: tool schemas drifted from snapshot")

// Snapshot serialises entries for drift checks. Source locations are left out
// since they depend on the checkout path.
func Snapshot(entries []Entry) ([]byte, error) {
	stripped := make([]Entry, len(entries))
	for i, e := range entries {
		e.Source = ""
		stripped[i] = e
	}

	out, err := json.MarshalIndent(stripped, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("catalog: snapshot: %w", err)
	}

	return append(out, '\n'), nil
}

// WriteSnapshot stores the snapshot of entries at path.
func WriteSnapshot(path string, entries []Entry) error {
	data, err := Snapshot(entries)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // snapshot files are meant to be committed
		return fmt.Errorf("catalog: write snapshot: %w", err)
	}

	return nil
}

// Check compares the snapshot stored at path with entries. It returns the
// unified diff and ErrDrift when they differ.
func Check(path string, entries []Entry) (string, error) {
	stored, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("catalog: read snapshot: %w", err)
	}

	current, err := Snapshot(entries)
	if err != nil {
		return "", err
	}

	diff := Diff(path, string(stored), string(current))
	if diff != "" {
		return diff, ErrDrift
	}

	return "", nil
}

// Diff returns a unified diff between the stored and current snapshots
// labelled with path. Returns an empty string when they are equal.
func Diff(path, stored, current string) string {
	if stored == current {
		return ""
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(stored),
		B:        difflib.SplitLines(current),
		FromFile: path,
		ToFile:   "current",
		Context:  3,
	}

	result, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Sprintf("(diff error: %v)", err)
	}

	return result
}
