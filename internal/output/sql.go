package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"phoenix/internal/core"
)

// sessionSettings make the literal escaping of the script unambiguous.
var sessionSettings = []string{
	"SET client_encoding = 'UTF8';",
	"SET standard_conforming_strings = on;",
}

type sqlFormatter struct{}

// FormatSchema formats an inferred schema as its CREATE TABLE statement.
func (sqlFormatter) FormatSchema(r *SchemaReport) (string, error) {
	if r == nil || r.DDL == "" {
		return "", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "-- phoenix inferred schema (%d records)\n", r.Records)
	if r.SuggestedKey != "" {
		fmt.Fprintf(&sb, "-- suggested primary key: %s\n", r.SuggestedKey)
	}
	writeCommentSection(&sb, "WARNINGS", warningLines(r.Warnings))
	sb.WriteString("\n")
	for _, stmt := range normalizeStatements([]string{r.DDL}) {
		sb.WriteString(stmt + "\n")
	}
	return sb.String(), nil
}

// FormatResult formats the script of a run that was rendered but not
// executed. Executed runs have no script and produce a comment only.
func (sqlFormatter) FormatResult(res *core.ImportResult) (string, error) {
	if res == nil {
		return "", nil
	}
	return FormatScript(res), nil
}

// FormatScript renders the export script of res: a header, the session
// settings, and every statement inside one transaction.
func FormatScript(res *core.ImportResult) string {
	var sb strings.Builder
	sb.WriteString("-- phoenix export\n")
	fmt.Fprintf(&sb, "-- run:       %s\n", res.RunID)
	fmt.Fprintf(&sb, "-- table:     %s\n", oneLine(res.Table))
	fmt.Fprintf(&sb, "-- mode:      %s\n", res.Mode)
	fmt.Fprintf(&sb, "-- records:   %d\n", res.RowsProcessed)
	fmt.Fprintf(&sb, "-- generated: %s\n", res.StartedAt.UTC().Format(time.RFC3339))

	writeCommentSection(&sb, "NOTES", res.Notes)
	writeCommentSection(&sb, "WARNINGS", warningLines(res.Warnings))

	stmts := normalizeStatements(res.Script)
	if len(stmts) == 0 {
		sb.WriteString("\n-- No SQL statements generated.\n")
		return sb.String()
	}

	sb.WriteString("\n")
	for _, s := range sessionSettings {
		sb.WriteString(s + "\n")
	}
	sb.WriteString("\nBEGIN;\n\n")
	for _, stmt := range stmts {
		sb.WriteString(stmt)
		sb.WriteString("\n")
	}
	sb.WriteString("\nCOMMIT;\n")
	return sb.String()
}

// WriteScript writes the export script of res to w.
func WriteScript(w io.Writer, res *core.ImportResult) error {
	_, err := io.WriteString(w, FormatScript(res))
	return err
}

// WriteScriptFile writes the export script of res to path, creating the
// parent directory when needed.
func WriteScriptFile(path string, res *core.ImportResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := WriteScript(f, res); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	return f.Close()
}

func warningLines(warnings []core.Warning) []string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, w.String())
	}
	return lines
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("--\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

// oneLine keeps a value inside a single comment line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}
