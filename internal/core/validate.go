package core

import (
	"strings"
	"unicode/utf8"
)

// ValidateIdentifier checks that name can be rendered as a double-quoted
// PostgreSQL identifier.
func ValidateIdentifier(name string) error {
	switch {
	case name == "":
		return &InvalidIdentifierError{Name: name, Reason: "name is empty"}
	case strings.TrimSpace(name) == "":
		return &InvalidIdentifierError{Name: name, Reason: "name is blank"}
	case strings.Contains(name, `"`):
		return &InvalidIdentifierError{Name: name, Reason: "name contains a double quote"}
	case strings.ContainsRune(name, 0):
		return &InvalidIdentifierError{Name: name, Reason: "name contains a NUL byte"}
	case !utf8.ValidString(name):
		return &InvalidIdentifierError{Name: name, Reason: "name is not valid UTF-8"}
	}
	return nil
}

// ValidatePrimaryKey scans every record and fails if any record lacks a
// non-null value for field, or if two records share the same value once
// stored in a column of keyType.
//
// Missing values are reported before duplicates, and the scan always covers
// the whole input so the reported indices are complete.
func ValidatePrimaryKey(records []Record, field string, keyType SQLType) error {
	firstMissing := -1
	positions := make(map[string][]int, len(records))
	var order []string

	for i, rec := range records {
		v, ok := rec.Get(field)
		if !ok || v.IsNull() {
			if firstMissing < 0 {
				firstMissing = i
			}
			continue
		}
		key := v.KeyTextAs(keyType)
		if _, seen := positions[key]; !seen {
			order = append(order, key)
		}
		positions[key] = append(positions[key], i)
	}

	if firstMissing >= 0 {
		return &MissingKeyError{Field: field, Index: firstMissing}
	}

	// Report the duplicate whose second occurrence comes first in the input.
	var dup *DuplicateKeyError
	secondAt := len(records)
	for _, key := range order {
		idx := positions[key]
		if len(idx) < 2 {
			continue
		}
		if idx[1] < secondAt {
			secondAt = idx[1]
			dup = &DuplicateKeyError{Field: field, Value: key, Indices: idx}
		}
	}
	if dup != nil {
		return dup
	}
	return nil
}
