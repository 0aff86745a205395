package infer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix/internal/core"
	"phoenix/internal/parser/jsondoc"
)

func decode(t *testing.T, doc string) []core.Record {
	t.Helper()
	records, err := jsondoc.DecodeBytes([]byte(doc))
	require.NoError(t, err)
	return records
}

func typeOf(t *testing.T, res *Result, name string) core.SQLType {
	t.Helper()
	col := res.Table.FindColumn(name)
	require.NotNil(t, col, "column %q", name)
	return col.Type
}

func TestResolveTypePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		values   string
		opts     Options
		want     core.SQLType
		wantWarn bool
	}{
		{name: "objects and arrays", values: `{"a":1}, [1,2]`, want: core.JSONB},
		{name: "booleans", values: `true, false`, want: core.Boolean},
		{name: "integers", values: `1, -2, 3`, want: core.BigInt},
		{name: "compact integers", values: `1, 2147483647`, opts: Options{CompactIntegers: true}, want: core.Integer},
		{name: "compact but too wide", values: `1, 2147483648`, opts: Options{CompactIntegers: true}, want: core.BigInt},
		{name: "integer beyond int64", values: `1, 9223372036854775808`, want: core.Double},
		{name: "mixed numbers", values: `1, 2.5`, want: core.Double},
		{name: "timestamps", values: `"2024-01-02T03:04:05Z", "2024-02-03"`, opts: Options{DetectTimestamps: true}, want: core.Timestamp},
		{name: "timestamps disabled", values: `"2024-01-02T03:04:05Z"`, want: core.Text},
		{name: "short strings default to text", values: `"a", "bb"`, want: core.Text},
		{name: "short strings with varchar", values: `"a", "bb"`, opts: Options{VarcharMaxLength: 255}, want: core.Varchar(255)},
		{name: "long strings", values: `"` + strings.Repeat("x", 256) + `"`, opts: Options{VarcharMaxLength: 255}, want: core.Text},
		{name: "varchar counts characters", values: `"ñññ"`, opts: Options{VarcharMaxLength: 3}, want: core.Varchar(3)},
		{name: "string and number", values: `"a", 1`, want: core.Text, wantWarn: true},
		{name: "object and string", values: `{"a":1}, "x"`, want: core.Text, wantWarn: true},
		{name: "bool and number", values: `true, 1`, want: core.Text, wantWarn: true},
		{name: "only nulls", values: `null, null`, want: core.Text},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var docs []string
			for _, v := range splitValues(tt.values) {
				docs = append(docs, `{"f":`+v+`}`)
			}
			records := decode(t, "["+strings.Join(docs, ",")+"]")
			p := Profile(records, []string{"f"})[0]

			got, warn := ResolveType(p, tt.opts)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			if tt.wantWarn {
				require.NotNil(t, warn)
				assert.Equal(t, core.WarnTypeAmbiguity, warn.Kind)
				assert.Equal(t, "f", warn.Field)
			} else {
				assert.Nil(t, warn)
			}
		})
	}
}

// splitValues splits a comma separated list of JSON values at top level.
func splitValues(s string) []string {
	var out []string
	depth, start := 0, 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}

func TestInferProductCatalog(t *testing.T) {
	records := decode(t, `[{"id":1,"name":"A","price":29.99},{"id":2,"name":"B","price":49.99}]`)

	res, err := Infer("products", records, []core.FieldSelection{
		{Name: "id", PrimaryKey: true},
		{Name: "name"},
		{Name: "price"},
	}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "products", res.Table.Name)
	assert.Equal(t, []string{"id", "name", "price"}, res.Table.ColumnNames())
	assert.True(t, typeOf(t, res, "id").Equal(core.BigInt))
	assert.True(t, typeOf(t, res, "name").Equal(core.Text))
	assert.True(t, typeOf(t, res, "price").Equal(core.Double))

	pk := res.Table.PrimaryKey()
	require.NotNil(t, pk)
	assert.Equal(t, "id", pk.Name)
	assert.False(t, pk.Nullable)
	assert.Empty(t, res.Warnings)
}

func TestInferNullability(t *testing.T) {
	records := decode(t, `[{"id":1,"a":1,"b":null},{"id":2,"a":2}]`)
	selection := []core.FieldSelection{{Name: "id", PrimaryKey: true}, {Name: "a"}, {Name: "b"}}

	t.Run("data columns are nullable by default", func(t *testing.T) {
		res, err := Infer("t", records, selection, DefaultOptions())
		require.NoError(t, err)

		assert.False(t, res.Table.FindColumn("id").Nullable)
		assert.True(t, res.Table.FindColumn("a").Nullable)
		b := res.Table.FindColumn("b")
		assert.True(t, b.Nullable)
		assert.True(t, b.Type.Equal(core.Text), "no non-null observations")
	})

	t.Run("not null follows the observations", func(t *testing.T) {
		opts := DefaultOptions()
		opts.NotNull = true
		res, err := Infer("t", records, selection, opts)
		require.NoError(t, err)

		assert.False(t, res.Table.FindColumn("id").Nullable)
		assert.False(t, res.Table.FindColumn("a").Nullable)
		assert.True(t, res.Table.FindColumn("b").Nullable)
	})
}

func TestInferMissingFieldIsNullable(t *testing.T) {
	records := decode(t, `[{"id":1,"name":"A"},{"id":3,"sku":"X1"}]`)

	res, err := Infer("t", records, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "sku"}, res.Table.ColumnNames())
	assert.True(t, res.Table.FindColumn("sku").Nullable)
	assert.True(t, res.Table.FindColumn("name").Nullable)
}

func TestInferJSONBPrimaryKeyFallsBackToText(t *testing.T) {
	records := decode(t, `[{"key":{"a":1}},{"key":{"a":2}}]`)

	res, err := Infer("t", records, []core.FieldSelection{{Name: "key", PrimaryKey: true}}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, typeOf(t, res, "key").Equal(core.Text))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.WarnKeyTypeFallback, res.Warnings[0].Kind)
}

func TestInferTypeOverride(t *testing.T) {
	records := decode(t, `[{"code":"001","meta":{"x":1}}]`)

	res, err := Infer("t", records, []core.FieldSelection{
		{Name: "code", Type: core.Varchar(10), PrimaryKey: true},
		{Name: "meta", Type: core.Text},
	}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, typeOf(t, res, "code").Equal(core.Varchar(10)))
	assert.True(t, typeOf(t, res, "meta").Equal(core.Text))
}

func TestInferJSONBOverrideOnKeyFallsBack(t *testing.T) {
	records := decode(t, `[{"code":"a"}]`)

	res, err := Infer("t", records, []core.FieldSelection{{Name: "code", Type: core.JSONB, PrimaryKey: true}}, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, typeOf(t, res, "code").Equal(core.Text))
	assert.Len(t, res.Warnings, 1)
}

func TestInferSelectionOrderAndUnseenFields(t *testing.T) {
	records := decode(t, `[{"a":1,"b":2,"c":3}]`)

	res, err := Infer("t", records, []core.FieldSelection{
		{Name: "ghost"},
		{Name: "c"},
		{Name: "a"},
	}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c", "ghost"}, res.Table.ColumnNames())
	ghost := res.Table.FindColumn("ghost")
	assert.True(t, ghost.Nullable)
	assert.True(t, ghost.Type.Equal(core.Text))
}

func TestInferSelectionErrors(t *testing.T) {
	records := decode(t, `[{"a":1}]`)

	_, err := Infer("t", records, []core.FieldSelection{{Name: "a", PrimaryKey: true}, {Name: "b", PrimaryKey: true}}, DefaultOptions())
	assert.ErrorContains(t, err, "only one primary key")

	_, err = Infer("t", records, []core.FieldSelection{{Name: "a"}, {Name: "a"}}, DefaultOptions())
	assert.ErrorContains(t, err, "more than once")

	_, err = Infer("t", records, []core.FieldSelection{{Name: `a"b`}}, DefaultOptions())
	assert.ErrorContains(t, err, "double quote")

	_, err = Infer("t", decode(t, `[{"":1}]`), nil, DefaultOptions())
	assert.ErrorContains(t, err, "name is empty")
}

func TestInferIsDeterministic(t *testing.T) {
	doc := `[
		{"sku":"A1","price":"28.00","tags":["x"],"stock":3,"seen":"2024-05-01T10:00:00Z"},
		{"sku":"A2","price":12.5,"stock":null,"extra":{"k":true}},
		{"sku":"A3","tags":[],"stock":7,"seen":"2024-05-02"}
	]`
	records := decode(t, doc)
	sel := []core.FieldSelection{{Name: "sku", PrimaryKey: true}}

	first, err := Infer("t", records, nil, DefaultOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Infer("t", records, nil, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, first.Table, again.Table)
		assert.Equal(t, first.Warnings, again.Warnings)
	}

	withKey, err := Infer("t", records, sel, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"sku"}, withKey.Table.ColumnNames())
}
