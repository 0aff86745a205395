// Package pgtest starts a throwaway PostgreSQL container for integration
// tests.
package pgtest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const image = "postgres:16-alpine"

// Container is a running PostgreSQL instance with an open pool.
type Container struct {
	DSN string
	DB  *sql.DB
}

// Start runs a container for the lifetime of t. Callers skip under -short
// before calling it.
func Start(t *testing.T) *Container {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, image,
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("testpass"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err, "failed to open direct DB connection")
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close DB connection: %v", err)
		}
	})

	return &Container{DSN: dsn, DB: db}
}

// Exec runs setup statements and fails the test on the first error.
func (c *Container) Exec(t *testing.T, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		_, err := c.DB.ExecContext(context.Background(), s)
		require.NoError(t, err, "setup statement failed: %s", s)
	}
}
