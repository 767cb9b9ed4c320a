package catalog

import (
	"fmt"
	"strings"
)

// Markdown renders entries as a markdown document with one section per tool.
func Markdown(entries []Entry) string {
	var b strings.Builder
	b.WriteString("# Tools\n")

	if len(entries) == 0 {
		b.WriteString("\nNo tools registered.\n")
		return b.String()
	}

	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s\n\n", e.Name)
		if e.Description != "" {
			b.WriteString(e.Description + "\n\n")
		}

		params := Params(e.InputSchema)
		if len(params) == 0 {
			b.WriteString("Takes no parameters.\n\n")
		} else {
			b.WriteString("| Parameter | Type | Required | Default | Description |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for _, p := range params {
				required := "no"
				if p.Required {
					required = "yes"
				}
				def := ""
				if p.Default != "" {
					def = "`" + p.Default + "`"
				}
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n",
					p.Name, escapeCell(p.Type), required, def, escapeCell(p.Description))
			}
			b.WriteString("\n")
		}

		fmt.Fprintf(&b, "**Returns:** %s\n", TypeName(e.OutputSchema))
		if e.Async {
			b.WriteString("\n_Runs asynchronously._\n")
		}
		if e.Source != "" {
			fmt.Fprintf(&b, "\n_Defined at `%s`._\n", e.Source)
		}
	}

	return b.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
