package diff

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
)

// mapColumnsByName creates a lookup map of columns keyed by their exact name.
// PostgreSQL quoted identifiers are case-sensitive, so only exact repeats
// are reported as collisions.
func mapColumnsByName(columns []*core.Column) (map[string]*core.Column, []string) {
	m := make(map[string]*core.Column, len(columns))
	var collisions []string

	for _, c := range columns {
		if _, ok := m[c.Name]; ok {
			collisions = append(collisions, fmt.Sprintf("duplicate column name %q", c.Name))
			continue
		}
		m[c.Name] = c
	}
	return m, collisions
}

// caseOnlyMatches returns inferred column names that have no exact match in
// existing but match an existing column case-insensitively.
func caseOnlyMatches(inferred, existing []*core.Column) []string {
	exact := make(map[string]bool, len(existing))
	folded := make(map[string]bool, len(existing))
	for _, c := range existing {
		exact[c.Name] = true
		folded[strings.ToLower(c.Name)] = true
	}

	var out []string
	for _, c := range inferred {
		if !exact[c.Name] && folded[strings.ToLower(c.Name)] {
			out = append(out, c.Name)
		}
	}
	return out
}
