package parser

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// SQLParser splits and checks PostgreSQL scripts using the server's own grammar.
type SQLParser struct{}

func NewSQLParser() *SQLParser {
	return &SQLParser{}
}

// Split breaks a script into its statements, dropping comments and the
// trailing semicolons.
func (p *SQLParser) Split(script string) ([]string, error) {
	stmts, err := pg_query.SplitWithParser(script, true)
	if err != nil {
		return nil, fmt.Errorf("split script: %w", err)
	}
	out := make([]string, 0, len(stmts))
	for _, s := range stmts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// Check parses every statement of the script and reports the first syntax error.
func (p *SQLParser) Check(script string) error {
	if _, err := pg_query.Parse(script); err != nil {
		return fmt.Errorf("invalid SQL: %w", err)
	}
	return nil
}
