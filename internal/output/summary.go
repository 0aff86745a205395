package output

import (
	"fmt"
	"strings"
	"time"

	"phoenix/internal/core"
)

type summaryFormatter struct{}

// FormatSchema formats an inferred schema as an aligned column listing.
// Example output:
//
//	Inferred Schema: products
//	=========================
//
//	Records: 2
//
//	  id     BIGINT            NOT NULL  PK  100.0% unique
//	  price  DOUBLE PRECISION  NULL           50.0% unique
func (summaryFormatter) FormatSchema(r *SchemaReport) (string, error) {
	if r == nil || r.Table == nil {
		return "No schema inferred.\n", nil
	}

	var sb strings.Builder
	writeTitle(&sb, "Inferred Schema: "+r.Table.Name)
	fmt.Fprintf(&sb, "Records: %d\n\n", r.Records)

	nameWidth, typeWidth := 0, 0
	for _, c := range r.Table.Columns {
		nameWidth = max(nameWidth, len(c.Name))
		typeWidth = max(typeWidth, len(c.Type.String()))
	}

	unique := make(map[string]float64, len(r.Uniqueness))
	for _, u := range r.Uniqueness {
		unique[u.Field] = u.Percent
	}

	for _, c := range r.Table.Columns {
		null := "NULL"
		if !c.Nullable {
			null = "NOT NULL"
		}
		pk := ""
		if c.PrimaryKey {
			pk = "PK"
		}
		fmt.Fprintf(&sb, "  %-*s  %-*s  %-8s  %-2s  %5.1f%% unique\n",
			nameWidth, c.Name, typeWidth, c.Type.String(), null, pk, unique[c.Name])
	}

	if r.SuggestedKey != "" {
		fmt.Fprintf(&sb, "\nSuggested primary key: %s\n", r.SuggestedKey)
	} else {
		sb.WriteString("\nNo field uniquely identifies every record.\n")
	}
	writeList(&sb, "Warnings", warningLines(r.Warnings))
	return sb.String(), nil
}

// FormatResult formats an import result as a compact summary.
func (summaryFormatter) FormatResult(res *core.ImportResult) (string, error) {
	if res == nil {
		return "No import result.\n", nil
	}

	var sb strings.Builder
	writeTitle(&sb, "Import Summary")

	planned := ""
	if res.Planned {
		planned = " (planned)"
	}

	fmt.Fprintf(&sb, "Run:            %s\n", res.RunID)
	fmt.Fprintf(&sb, "Table:          %s\n", res.Table)
	fmt.Fprintf(&sb, "Mode:           %s\n", res.Mode)
	fmt.Fprintf(&sb, "State:          %s\n", res.State)
	fmt.Fprintf(&sb, "Rows processed: %d\n", res.RowsProcessed)
	fmt.Fprintf(&sb, "Rows inserted:  %d%s\n", res.RowsInserted, planned)
	fmt.Fprintf(&sb, "Rows updated:   %d%s\n", res.RowsUpdated, planned)
	fmt.Fprintf(&sb, "Statements:     %d\n", res.Statements)
	if len(res.ColumnsAdded) > 0 {
		fmt.Fprintf(&sb, "Columns added:  %s\n", strings.Join(res.ColumnsAdded, ", "))
	}
	if res.ExportPath != "" {
		fmt.Fprintf(&sb, "Export:         %s\n", res.ExportPath)
	}
	fmt.Fprintf(&sb, "Duration:       %s\n", res.Duration().Round(time.Millisecond))

	writeList(&sb, "Notes", res.Notes)
	writeList(&sb, "Warnings", warningLines(res.Warnings))
	writeList(&sb, "Errors", res.Errors)
	return sb.String(), nil
}

func writeTitle(sb *strings.Builder, title string) {
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s: %d\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(sb, "   - %s\n", item)
	}
}
