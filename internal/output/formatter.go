// Package output renders import reports and export scripts. It provides
// three formats: SQL, JSON and a compact summary.
package output

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
	"phoenix/internal/infer"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatSQL     Format = "sql"
	FormatJSON    Format = "json"
	FormatSummary Format = "summary"
)

// Formatter renders inferred schemas and import results.
type Formatter interface {
	FormatSchema(*SchemaReport) (string, error)
	FormatResult(*core.ImportResult) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to the summary format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatSummary:
		return summaryFormatter{}, nil
	case FormatSQL:
		return sqlFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'summary', 'sql', or 'json'", name)
	}
}

// SchemaReport is what the infer command shows: the inferred table, how
// well each field identifies records, and the table's DDL.
type SchemaReport struct {
	Table        *core.Table
	Records      int
	Uniqueness   []infer.Uniqueness
	SuggestedKey string
	Warnings     []core.Warning
	DDL          string
}

// NewSchemaReport builds a report from an inference result over records
// input records.
func NewSchemaReport(res *infer.Result, records int, ddl string) *SchemaReport {
	return &SchemaReport{
		Table:        res.Table,
		Records:      records,
		Uniqueness:   infer.UniquenessReport(res.Profiles, records),
		SuggestedKey: infer.SuggestPrimaryKey(res.Profiles, records),
		Warnings:     res.Warnings,
		DDL:          ddl,
	}
}

func normalizeStatements(stmts []string) []string {
	var out []string
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if !strings.HasSuffix(stmt, ";") {
			stmt += ";"
		}
		out = append(out, stmt)
	}
	return out
}
