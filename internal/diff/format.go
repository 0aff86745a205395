package diff

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
)

// String returns a human readable description of the delta.
func (d *SchemaDelta) String() string {
	var sb strings.Builder

	if !d.TableExists {
		fmt.Fprintf(&sb, "Table %s does not exist and will be created.\n", d.Table)
		return sb.String()
	}

	if d.IsEmpty() && len(d.Mismatches) == 0 && len(d.Warnings) == 0 {
		return "No schema changes required.\n"
	}

	fmt.Fprintf(&sb, "Schema changes for %s:\n", d.Table)

	if len(d.Changes) > 0 {
		sb.WriteString("\nAdded columns:\n")
		for _, c := range d.Changes {
			fmt.Fprintf(&sb, "  + %s %s NULL\n", c.Column.Name, c.Column.Type)
		}
	}

	if len(d.Mismatches) > 0 {
		sb.WriteString("\nType mismatches (existing type kept):\n")
		for _, m := range d.Mismatches {
			fmt.Fprintf(&sb, "  ~ %s: inferred %s, existing %s\n", m.Column, m.Inferred, m.Existing)
		}
	}

	var other []string
	for _, w := range d.Warnings {
		if w.Kind != core.WarnTypeMismatch {
			other = append(other, w.String())
		}
	}
	if len(other) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, w := range other {
			fmt.Fprintf(&sb, "  - %s\n", w)
		}
	}

	return sb.String()
}
