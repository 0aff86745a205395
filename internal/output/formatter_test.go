package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix/internal/core"
	"phoenix/internal/infer"
)

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name string
		want Formatter
	}{
		{"", summaryFormatter{}},
		{"summary", summaryFormatter{}},
		{"SUMMARY", summaryFormatter{}},
		{"sql", sqlFormatter{}},
		{" SQL ", sqlFormatter{}},
		{"json", jsonFormatter{}},
		{"JSON", jsonFormatter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.name)
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestNewFormatterUnsupported(t *testing.T) {
	f, err := NewFormatter("xml")
	assert.Nil(t, f)
	assert.ErrorContains(t, err, "unsupported format: xml")
}

func TestNormalizeStatements(t *testing.T) {
	got := normalizeStatements([]string{"  SELECT 1  ", "", "SELECT 2;", "\n"})
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;"}, got)
	assert.Nil(t, normalizeStatements(nil))
}

func TestNewSchemaReport(t *testing.T) {
	records := []core.Record{
		core.NewRecord(core.Member{Key: "sku", Value: core.String("A1")}, core.Member{Key: "brand", Value: core.String("x")}),
		core.NewRecord(core.Member{Key: "sku", Value: core.String("B2")}, core.Member{Key: "brand", Value: core.String("x")}),
	}
	res, err := infer.Infer("products", records, nil, infer.DefaultOptions())
	require.NoError(t, err)

	r := NewSchemaReport(res, len(records), `CREATE TABLE "products" ()`)
	assert.Equal(t, "sku", r.SuggestedKey)
	assert.Equal(t, 2, r.Records)
	require.Len(t, r.Uniqueness, 2)
	assert.True(t, r.Uniqueness[0].Candidate)
	assert.False(t, r.Uniqueness[1].Candidate)
}

func sampleResult() *core.ImportResult {
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &core.ImportResult{
		RunID:         "5f1c2b1e-0000-4000-8000-000000000001",
		Table:         "products",
		Mode:          core.ModeUpsert,
		State:         core.StateDone,
		RowsProcessed: 2,
		RowsInserted:  2,
		Planned:       true,
		ColumnsAdded:  []string{"id", "name"},
		Statements:    2,
		Notes:         []string{"table products does not exist and is created"},
		Script: []string{
			"CREATE TABLE \"products\" (\n  \"id\" BIGINT PRIMARY KEY,\n  \"name\" TEXT\n)",
			`INSERT INTO "products" ("id", "name") VALUES (1, 'it''s'), (2, NULL) ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"`,
		},
		Warnings:   []core.Warning{{Kind: core.WarnTypeAmbiguity, Field: "name", Message: "mixed value kinds (number, string); using TEXT"}},
		Errors:     []string{},
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
}
