package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix/internal/core"
)

func TestCleanCurrency(t *testing.T) {
	tests := []struct {
		in       core.Value
		want     core.Value
		cleaned  bool
		warnings int
	}{
		{in: core.String("28.00 EUR"), want: core.Number("28.00"), cleaned: true},
		{in: core.String("28,50 EUR"), want: core.Number("28.50"), cleaned: true},
		{in: core.String(" 12eur "), want: core.Number("12"), cleaned: true},
		{in: core.String("-3,5 EUR"), want: core.Number("-3.5"), cleaned: true},
		{in: core.String("+007 EUR"), want: core.Number("7"), cleaned: true},
		{in: core.String("1.234,56 EUR"), want: core.String("1.234,56 EUR"), warnings: 1},
		{in: core.String("free EUR"), want: core.String("free EUR"), warnings: 1},
		{in: core.String("EUR"), want: core.String("EUR"), warnings: 1},
		{in: core.String("28.00 USD"), want: core.String("28.00 USD")},
		{in: core.Number("28"), want: core.Number("28")},
		{in: core.Null(), want: core.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.in.Text(), func(t *testing.T) {
			recs := []core.Record{core.NewRecord(core.Member{Key: "price", Value: tt.in})}

			out, warnings := CleanCurrency(recs, []string{"EUR"})

			require.Len(t, out, 1)
			got, ok := out[0].Get("price")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestCleanCurrencyWarnsOncePerField(t *testing.T) {
	recs := []core.Record{
		core.NewRecord(core.Member{Key: "price", Value: core.String("n/a EUR")}),
		core.NewRecord(core.Member{Key: "price", Value: core.String("? EUR")}),
		core.NewRecord(core.Member{Key: "list", Value: core.String("x EUR")}),
	}

	_, warnings := CleanCurrency(recs, []string{"EUR"})

	require.Len(t, warnings, 2)
	assert.Equal(t, core.WarnValueCleanup, warnings[0].Kind)
	assert.Equal(t, "price", warnings[0].Field)
	assert.Equal(t, `record 0: "n/a EUR" is not an amount; kept as text`, warnings[0].Message)
	assert.Equal(t, "list", warnings[1].Field)
}

func TestCleanCurrencyKeepsFieldOrderAndInput(t *testing.T) {
	in := []core.Record{core.NewRecord(
		core.Member{Key: "sku", Value: core.String("A1")},
		core.Member{Key: "price", Value: core.String("5 EUR")},
		core.Member{Key: "note", Value: core.String("cheap")},
	)}

	out, _ := CleanCurrency(in, []string{"USD", "EUR"})

	assert.Equal(t, []string{"sku", "price", "note"}, out[0].Keys())
	orig, _ := in[0].Get("price")
	assert.Equal(t, core.String("5 EUR"), orig, "input records are not modified")
}

func TestCleanCurrencyWithoutSuffixes(t *testing.T) {
	in := []core.Record{core.NewRecord(core.Member{Key: "price", Value: core.String("5 EUR")})}
	out, warnings := CleanCurrency(in, nil)
	assert.Equal(t, in, out)
	assert.Nil(t, warnings)
}
