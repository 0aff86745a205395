// Package introspect reads the live definition of an import's target table.
// It returns a core.Table with the columns in ordinal order, or nil when the
// table does not exist.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx, so a table can be
// introspected inside the transaction that later writes to it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Introspecter interface {
	Table(ctx context.Context, q Querier, name string) (*core.Table, error)
}

var (
	registry = make(map[dialect.Type]func() Introspecter)
	mu       sync.RWMutex
)

func Register(d dialect.Type, fn func() Introspecter) {
	mu.Lock()
	defer mu.Unlock()
	registry[d] = fn
}

func NewIntrospecter(d dialect.Type) (Introspecter, error) {
	mu.RLock()
	fn, ok := registry[d]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported dialect %v", d)
	}

	return fn(), nil
}
