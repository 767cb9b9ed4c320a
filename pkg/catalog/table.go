package catalog

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

var tableHeader = []string{"NAME", "MODE", "PARAMETERS", "RETURNS", "DESCRIPTION"}

// Table renders entries as aligned columns. When width is positive the
// description column is truncated so rows fit in width cells.
func Table(entries []Entry, width int) string {
	rows := [][]string{tableHeader}
	for _, e := range entries {
		mode := "sync"
		if e.Async {
			mode = "async"
		}
		rows = append(rows, []string{
			e.Name,
			mode,
			Signature(e.InputSchema),
			TypeName(e.OutputSchema),
			firstLine(e.Description),
		})
	}

	widths := make([]int, len(tableHeader))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	const gap = 2
	last := len(widths) - 1
	if width > 0 {
		used := 0
		for _, w := range widths[:last] {
			used += w + gap
		}
		widths[last] = max(min(widths[last], width-used), len(tableHeader[last]))
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == last {
				b.WriteString(runewidth.Truncate(cell, widths[i], "…"))
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]+gap))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
