package postgresql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
	"phoenix/internal/introspect"
	"phoenix/internal/pgtest"
)

func TestCatalogType(t *testing.T) {
	tests := []struct {
		dataType string
		udt      string
		length   sql.NullInt64
		want     core.SQLType
	}{
		{dataType: "bigint", udt: "int8", want: core.BigInt},
		{dataType: "integer", udt: "int4", want: core.Integer},
		{dataType: "double precision", udt: "float8", want: core.Double},
		{dataType: "boolean", udt: "bool", want: core.Boolean},
		{dataType: "text", udt: "text", want: core.Text},
		{dataType: "jsonb", udt: "jsonb", want: core.JSONB},
		{dataType: "timestamp without time zone", udt: "timestamp", want: core.Timestamp},
		{dataType: "character varying", udt: "varchar", length: sql.NullInt64{Int64: 120, Valid: true}, want: core.Varchar(120)},
		{dataType: "numeric", udt: "numeric", want: core.SQLType{Base: core.TypeOther, Raw: "numeric"}},
		{dataType: "ARRAY", udt: "_text", want: core.SQLType{Base: core.TypeOther, Raw: "_text"}},
	}

	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			got := catalogType(tt.dataType, tt.udt, tt.length)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}

func TestRegistered(t *testing.T) {
	i, err := introspect.NewIntrospecter(dialect.PostgreSQL)
	require.NoError(t, err)
	assert.NotNil(t, i)
}

func TestTableIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pg := pgtest.Start(t)
	pg.Exec(t, `CREATE TABLE products (
		id BIGINT PRIMARY KEY,
		"Name" VARCHAR(100) NOT NULL,
		price DOUBLE PRECISION,
		tags JSONB,
		seen TIMESTAMP,
		amount NUMERIC(10,2)
	)`)

	ctx := context.Background()
	i := New()

	t.Run("existing table", func(t *testing.T) {
		tbl, err := i.Table(ctx, pg.DB, "products")
		require.NoError(t, err)
		require.NotNil(t, tbl)

		assert.Equal(t, []string{"id", "Name", "price", "tags", "seen", "amount"}, tbl.ColumnNames())
		assert.Equal(t, []string{"id"}, tbl.PrimaryKeyNames())
		assert.False(t, tbl.FindColumn("id").Nullable)
		assert.False(t, tbl.FindColumn("Name").Nullable)
		assert.True(t, tbl.FindColumn("price").Nullable)
		assert.True(t, core.Varchar(100).Equal(tbl.FindColumn("Name").Type))
		assert.True(t, core.JSONB.Equal(tbl.FindColumn("tags").Type))
		assert.Equal(t, core.TypeOther, tbl.FindColumn("amount").Type.Base)
	})

	t.Run("missing table", func(t *testing.T) {
		tbl, err := i.Table(ctx, pg.DB, "nope")
		require.NoError(t, err)
		assert.Nil(t, tbl)
	})

	t.Run("inside a transaction", func(t *testing.T) {
		tx, err := pg.DB.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `CREATE TABLE pending (sku TEXT)`)
		require.NoError(t, err)

		tbl, err := i.Table(ctx, tx, "pending")
		require.NoError(t, err)
		require.NotNil(t, tbl)
		assert.Empty(t, tbl.PrimaryKeyNames())
	})
}
