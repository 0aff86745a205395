package core

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestTableName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "data/products.json", want: "products"},
		{path: "Catálogo Enriquecido.json", want: "catalogo_enriquecido"},
		{path: "/tmp/2024-export (final).json", want: "t_2024_export_final"},
		{path: "--.json", want: "imported_data"},
		{path: "Ñandú__Listado.JSON", want: "nandu_listado"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestTableName(tt.path))
		})
	}
}

func TestDefaultExportPath(t *testing.T) {
	assert.Equal(t, filepath.Join("exports", "products.sql"), DefaultExportPath("/data/products.json"))
	assert.Equal(t, filepath.Join("exports", "imported_data.sql"), DefaultExportPath(""))
}
