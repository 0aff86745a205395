// Package dialect defines how SQL statements for an import are generated. The
// importer only talks to a Generator, so statement text never leaks into the
// orchestration code.
package dialect

import (
	"fmt"

	"phoenix/internal/core"
	"phoenix/internal/diff"
)

type Type string

const (
	PostgreSQL Type = "postgresql"
)

// DefaultBatchSize is the number of records carried by a single INSERT.
const DefaultBatchSize = 500

// Generator builds the statements of an import. Every identifier it emits is
// quoted, and record values are carried as bound parameters.
type Generator interface {
	QuoteIdentifier(name string) (string, error)
	QuoteString(value string) string
	CreateTable(table *core.Table) (core.Statement, error)
	DropTable(name string) (core.Statement, error)
	AddColumns(table string, changes []diff.Change) ([]core.Statement, error)
	Insert(table *core.Table, records []core.Record, opts InsertOptions) ([]core.Statement, error)
	RenderLiteral(stmt core.Statement) (string, error)
}

// InsertOptions controls how records are turned into insert statements.
type InsertOptions struct {
	Mode      core.ImportMode
	BatchSize int

	// Returning asks for a clause that reports, per row, whether it was
	// freshly inserted. It is only honored for upserts.
	Returning bool
}

// Dialect ties a name to its generator.
type Dialect interface {
	Name() Type
	Generator() Generator
}

var registry = map[Type]func() Dialect{}

// RegisterDialect creates a new registry entry for the specified dialect.
func RegisterDialect(d Type, ctor func() Dialect) {
	registry[d] = ctor
}

// GetDialect returns the dialect for the specified type from the registry.
func GetDialect(d Type) (Dialect, error) {
	ctor, ok := registry[d]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s", d)
	}
	return ctor(), nil
}
