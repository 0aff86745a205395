package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
)

func TestRenderLiteral(t *testing.T) {
	g := NewPostgresGenerator()

	stmt := core.Statement{
		Kind: core.StatementInsert,
		SQL:  `INSERT INTO "price$1" ("a", "b", "c", "d", "e", "f", "g") VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		Args: []any{
			nil,
			true,
			int64(-3),
			2.5,
			"it's",
			json.RawMessage(`{"note":"O'Brien"}`),
			time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
		},
	}

	got, err := g.RenderLiteral(stmt)
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "price$1" ("a", "b", "c", "d", "e", "f", "g") VALUES `+
		`(NULL, TRUE, -3, 2.5, 'it''s', '{"note":"O''Brien"}'::jsonb, '2024-03-01 08:30:00'::timestamp)`, got)
}

func TestRenderLiteralMultiDigitPlaceholders(t *testing.T) {
	g := NewPostgresGenerator()

	args := make([]any, 12)
	for i := range args {
		args[i] = int64(i + 1)
	}
	got, err := g.RenderLiteral(core.Statement{SQL: "VALUES ($1, $2), ($11, $12)", Args: args})
	require.NoError(t, err)
	assert.Equal(t, "VALUES (1, 2), (11, 12)", got)
}

func TestRenderLiteralErrors(t *testing.T) {
	g := NewPostgresGenerator()

	_, err := g.RenderLiteral(core.Statement{SQL: "VALUES ($2)", Args: []any{int64(1)}})
	assert.Error(t, err)

	_, err = g.RenderLiteral(core.Statement{SQL: "VALUES ($1)", Args: []any{struct{}{}}})
	assert.Error(t, err)
}

func TestRenderLiteralWithoutArgs(t *testing.T) {
	got, err := NewPostgresGenerator().RenderLiteral(core.Statement{SQL: `DROP TABLE IF EXISTS "t"`})
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "t"`, got)
}

func TestRenderedUpsertOmitsReturning(t *testing.T) {
	g := NewPostgresGenerator()

	stmts, err := g.Insert(productsTable(), []core.Record{product("1", "A'1", "29.99")},
		dialect.InsertOptions{Mode: core.ModeUpsert, Returning: true})
	require.NoError(t, err)

	got, err := g.RenderLiteral(stmts[0])
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "products" ("id", "name", "price") VALUES (1, 'A''1', 29.99) `+
		`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "price" = EXCLUDED."price"`, got)
	assert.NotContains(t, got, "RETURNING")
}
