// Package postgres generates the PostgreSQL statements of an import:
// table creation, additive column changes, and batched inserts or upserts
// with bound parameters.
package postgres

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
	"phoenix/internal/diff"
)

// maxParams is the protocol limit on bound parameters per statement.
const maxParams = 65535

func init() {
	dialect.RegisterDialect(dialect.PostgreSQL, func() dialect.Dialect {
		return NewPostgresDialect()
	})
}

// Dialect represents the PostgreSQL dialect.
type Dialect struct {
	generator *Generator
}

// NewPostgresDialect initializes a new PostgreSQL dialect instance.
func NewPostgresDialect() *Dialect {
	return &Dialect{generator: NewPostgresGenerator()}
}

// Name returns the name of the PostgreSQL dialect.
func (d *Dialect) Name() dialect.Type {
	return dialect.PostgreSQL
}

// Generator returns the statement generator for the PostgreSQL dialect.
func (d *Dialect) Generator() dialect.Generator {
	return d.generator
}

// Generator is a stateless PostgreSQL statement builder.
type Generator struct{}

// NewPostgresGenerator initializes a new PostgreSQL statement generator.
func NewPostgresGenerator() *Generator {
	return &Generator{}
}

// QuoteIdentifier wraps name in double quotes. Names that cannot be quoted
// safely are rejected instead of escaped.
func (g *Generator) QuoteIdentifier(name string) (string, error) {
	if err := core.ValidateIdentifier(name); err != nil {
		return "", err
	}
	return `"` + name + `"`, nil
}

// QuoteString renders value as a standard-conforming string literal.
func (g *Generator) QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// CreateTable renders CREATE TABLE with the columns in table order.
func (g *Generator) CreateTable(t *core.Table) (core.Statement, error) {
	name, err := g.QuoteIdentifier(t.Name)
	if err != nil {
		return core.Statement{}, err
	}
	if len(t.Columns) == 0 {
		return core.Statement{}, &core.SchemaIncompatibleError{Table: t.Name, Index: -1, Reason: "table has no columns"}
	}

	lines := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		def, err := g.columnDefinition(c)
		if err != nil {
			return core.Statement{}, err
		}
		lines = append(lines, "  "+def)
	}

	return core.Statement{
		Kind: core.StatementCreate,
		SQL:  fmt.Sprintf("CREATE TABLE %s (\n%s\n)", name, strings.Join(lines, ",\n")),
	}, nil
}

// DropTable renders DROP TABLE IF EXISTS.
func (g *Generator) DropTable(name string) (core.Statement, error) {
	quoted, err := g.QuoteIdentifier(name)
	if err != nil {
		return core.Statement{}, err
	}
	return core.Statement{Kind: core.StatementDrop, SQL: "DROP TABLE IF EXISTS " + quoted}, nil
}

// AddColumns renders one ALTER TABLE ... ADD COLUMN per change. Added columns
// are always nullable so existing rows stay valid.
func (g *Generator) AddColumns(table string, changes []diff.Change) ([]core.Statement, error) {
	name, err := g.QuoteIdentifier(table)
	if err != nil {
		return nil, err
	}

	stmts := make([]core.Statement, 0, len(changes))
	for _, ch := range changes {
		if ch.Action != diff.ActionAddColumn || ch.Column == nil {
			continue
		}
		col, err := g.QuoteIdentifier(ch.Column.Name)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, core.Statement{
			Kind: core.StatementAddColumn,
			SQL:  fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", name, col, ch.Column.Type),
		})
	}
	return stmts, nil
}

func (g *Generator) columnDefinition(c *core.Column) (string, error) {
	name, err := g.QuoteIdentifier(c.Name)
	if err != nil {
		return "", err
	}
	if c.Type.IsZero() {
		return "", fmt.Errorf("column %s has no type", name)
	}

	parts := []string{name, c.Type.String()}
	if c.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	} else if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " "), nil
}
