package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix/internal/core"
	"phoenix/internal/infer"
)

func TestJSONFormatterFormatResult(t *testing.T) {
	out, err := jsonFormatter{}.FormatResult(sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "}\n"))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "json", got["format"])
	assert.Equal(t, "5f1c2b1e-0000-4000-8000-000000000001", got["runId"])
	assert.Equal(t, "products", got["table"])
	assert.Equal(t, "upsert", got["mode"])
	assert.Equal(t, "DONE", got["state"])
	assert.Equal(t, float64(2), got["rowsInserted"])
	assert.Equal(t, float64(0), got["rowsUpdated"])
	assert.Equal(t, true, got["planned"])
	assert.Equal(t, float64(1500), got["durationMs"])
	assert.Equal(t, []any{"id", "name"}, got["columnsAdded"])
	assert.Equal(t, []any{}, got["errors"])

	sql, ok := got["sql"].([]any)
	require.True(t, ok)
	require.Len(t, sql, 2)
	assert.True(t, strings.HasSuffix(sql[1].(string), `EXCLUDED."name";`))

	schema, ok := got["schema"]
	assert.False(t, ok, "schema is omitted when empty: %v", schema)
}

func TestJSONFormatterFormatResultNil(t *testing.T) {
	out, err := jsonFormatter{}.FormatResult(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"format":"json","durationMs":0}`, out)
}

func TestJSONFormatterFormatSchema(t *testing.T) {
	report := &SchemaReport{
		Table: &core.Table{Name: "products", Columns: []*core.Column{
			{Name: "sku", Type: core.Text, PrimaryKey: true},
			{Name: "price", Type: core.Double, Nullable: true},
		}},
		Records:      2,
		SuggestedKey: "sku",
		Uniqueness: []infer.Uniqueness{
			{Field: "sku", Present: 2, Distinct: 2, Percent: 100, Candidate: true},
			{Field: "price", Present: 1, Distinct: 1, Percent: 100},
		},
	}

	out, err := jsonFormatter{}.FormatSchema(report)
	require.NoError(t, err)

	var got struct {
		Format       string `json:"format"`
		Records      int    `json:"records"`
		SuggestedKey string `json:"suggestedPrimaryKey"`
		Table        struct {
			Name    string `json:"name"`
			Columns []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"columns"`
		} `json:"table"`
		Uniqueness []infer.Uniqueness `json:"uniqueness"`
		Warnings   []core.Warning     `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, "json", got.Format)
	assert.Equal(t, 2, got.Records)
	assert.Equal(t, "sku", got.SuggestedKey)
	assert.Equal(t, "products", got.Table.Name)
	require.Len(t, got.Table.Columns, 2)
	assert.Equal(t, "DOUBLE PRECISION", got.Table.Columns[1].Type)
	assert.Equal(t, report.Uniqueness, got.Uniqueness)
	assert.NotNil(t, got.Warnings)
}

func TestJSONFormatterFormatSchemaNil(t *testing.T) {
	out, err := jsonFormatter{}.FormatSchema(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"format":"json","table":null,"records":0,"uniqueness":[],"warnings":[]}`, out)
}
