package core

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackTableName = "imported_data"

// SuggestTableName derives a table name from an input file path:
// "Catálogo Enriquecido.json" becomes "catalogo_enriquecido".
func SuggestTableName(path string) string {
	stem := fileStem(path)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, stem)
	if err != nil {
		folded = stem
	}

	var sb strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}
			pendingSep = false
			sb.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	name := sb.String()
	if name == "" {
		return fallbackTableName
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t_" + name
	}
	return name
}

// DefaultExportPath returns exports/<stem>.sql for an input file path.
func DefaultExportPath(path string) string {
	stem := fileStem(path)
	if stem == "" {
		stem = fallbackTableName
	}
	return filepath.Join("exports", stem+".sql")
}

func fileStem(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
