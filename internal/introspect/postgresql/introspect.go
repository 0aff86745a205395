// Package postgresql introspects a table in the current schema through
// information_schema.
package postgresql

import (
	"context"
	"fmt"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
	"phoenix/internal/introspect"
)

func init() {
	introspect.Register(dialect.PostgreSQL, New)
}

type postgresqlIntrospecter struct{}

// New returns an introspecter that reads tables from the current schema.
func New() introspect.Introspecter {
	return &postgresqlIntrospecter{}
}

const tableExistsQuery = `
	SELECT EXISTS (
		SELECT 1
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	)`

func (i *postgresqlIntrospecter) Table(ctx context.Context, q introspect.Querier, name string) (*core.Table, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, tableExistsQuery, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check table %q: %w", name, err)
	}
	if !exists {
		return nil, nil
	}

	t := &core.Table{Name: name}
	if err := introspectColumns(ctx, q, t); err != nil {
		return nil, fmt.Errorf("introspect columns of %q: %w", name, err)
	}
	return t, nil
}
