// Package core contains the single source of truth for an import run.
// It provides a structured representation of input records, the tables and
// columns derived from them, import modes, and the errors every other
// package reports.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType is an ENUM with all column base types the importer can produce.
type DataType string

const (
	TypeInteger   DataType = "INTEGER"
	TypeBigInt    DataType = "BIGINT"
	TypeDouble    DataType = "DOUBLE PRECISION"
	TypeBoolean   DataType = "BOOLEAN"
	TypeVarchar   DataType = "VARCHAR"
	TypeText      DataType = "TEXT"
	TypeJSONB     DataType = "JSONB"
	TypeTimestamp DataType = "TIMESTAMP"
	// TypeOther marks an introspected type the importer never generates itself.
	TypeOther DataType = "OTHER"
)

// SQLType is a column type. Length is only meaningful for VARCHAR and Raw
// only for TypeOther. The zero value means "not set".
type SQLType struct {
	Base   DataType
	Length int
	Raw    string
}

var (
	Integer   = SQLType{Base: TypeInteger}
	BigInt    = SQLType{Base: TypeBigInt}
	Double    = SQLType{Base: TypeDouble}
	Boolean   = SQLType{Base: TypeBoolean}
	Text      = SQLType{Base: TypeText}
	JSONB     = SQLType{Base: TypeJSONB}
	Timestamp = SQLType{Base: TypeTimestamp}
)

// Varchar returns a VARCHAR type of length n.
func Varchar(n int) SQLType { return SQLType{Base: TypeVarchar, Length: n} }

// IsZero reports whether the type is unset.
func (t SQLType) IsZero() bool { return t.Base == "" }

// Comparable reports whether the type can back a primary key.
func (t SQLType) Comparable() bool { return t.Base != TypeJSONB && !t.IsZero() }

// Equal compares two types, ignoring the raw spelling of known types.
func (t SQLType) Equal(o SQLType) bool {
	if t.Base != o.Base {
		return false
	}
	switch t.Base {
	case TypeVarchar:
		return t.Length == o.Length
	case TypeOther:
		return strings.EqualFold(t.Raw, o.Raw)
	default:
		return true
	}
}

// String renders the type as PostgreSQL DDL.
func (t SQLType) String() string {
	switch t.Base {
	case "":
		return ""
	case TypeVarchar:
		if t.Length <= 0 {
			return "VARCHAR"
		}
		return fmt.Sprintf("VARCHAR(%d)", t.Length)
	case TypeOther:
		return t.Raw
	default:
		return string(t.Base)
	}
}

// MarshalText encodes the type as its DDL spelling.
func (t SQLType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText accepts any spelling ParseSQLType understands.
func (t *SQLType) UnmarshalText(b []byte) error {
	parsed, err := ParseSQLType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var sqlTypeAliases = map[string]SQLType{
	"integer":                     Integer,
	"int":                         Integer,
	"int4":                        Integer,
	"bigint":                      BigInt,
	"int8":                        BigInt,
	"double precision":            Double,
	"double":                      Double,
	"float8":                      Double,
	"float":                       Double,
	"boolean":                     Boolean,
	"bool":                        Boolean,
	"text":                        Text,
	"jsonb":                       JSONB,
	"timestamp":                   Timestamp,
	"timestamp without time zone": Timestamp,
}

// ParseSQLType maps a type name, either user supplied ("VARCHAR(100)") or
// introspected ("character varying"), to a SQLType. Names the importer does
// not generate itself are kept verbatim as TypeOther.
func ParseSQLType(raw string) (SQLType, error) {
	lower := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if lower == "" {
		return SQLType{}, fmt.Errorf("empty column type")
	}
	if t, ok := sqlTypeAliases[lower]; ok {
		return t, nil
	}

	for _, prefix := range []string{"varchar", "character varying"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(lower, prefix))
		if rest == "" {
			return SQLType{Base: TypeVarchar}, nil
		}
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return SQLType{}, fmt.Errorf("malformed varchar type %q", raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(rest[1 : len(rest)-1]))
		if err != nil || n <= 0 {
			return SQLType{}, fmt.Errorf("invalid varchar length in %q", raw)
		}
		return Varchar(n), nil
	}

	return SQLType{Base: TypeOther, Raw: strings.TrimSpace(raw)}, nil
}

// Column represents a single column of a target table.
type Column struct {
	Name       string  `json:"name"`
	Type       SQLType `json:"type"`
	Nullable   bool    `json:"nullable"`
	PrimaryKey bool    `json:"primaryKey,omitempty"`
}

// Table represents the target table of an import.
type Table struct {
	Name    string    `json:"name"`
	Columns []*Column `json:"columns"`
}

// FindColumn looks for a column by name inside a table. PostgreSQL quoted
// identifiers are case-sensitive, so the match is exact.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary key column of the table, or nil.
func (t *Table) PrimaryKey() *Column {
	for _, c := range t.Columns {
		if c.PrimaryKey {
			return c
		}
	}
	return nil
}

// PrimaryKeyNames returns every column flagged as part of the primary key.
// Introspected tables may carry a composite key.
func (t *Table) PrimaryKeyNames() []string {
	var names []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			names = append(names, c.Name)
		}
	}
	return names
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// String returns a short description of the table.
func (t *Table) String() string {
	return fmt.Sprintf("Table: %s (%d cols)", t.Name, len(t.Columns))
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns))}
	for i, c := range t.Columns {
		cp := *c
		out.Columns[i] = &cp
	}
	return out
}

// WithoutPrimaryKey returns a copy of the table whose key columns are plain
// nullable columns.
func (t *Table) WithoutPrimaryKey() *Table {
	out := t.Clone()
	for _, c := range out.Columns {
		if c.PrimaryKey {
			c.PrimaryKey = false
			c.Nullable = true
		}
	}
	return out
}

// FieldSelection is a caller decision about one input field: whether it is
// the primary key and, optionally, which type to use instead of the inferred one.
type FieldSelection struct {
	Name       string  `json:"name"`
	Type       SQLType `json:"type,omitempty"`
	PrimaryKey bool    `json:"primaryKey,omitempty"`
}

// ImportMode governs which statements are generated for a run.
type ImportMode string

const (
	ModeUpsert ImportMode = "upsert"
	ModeNuke   ImportMode = "nuke"
	ModeAppend ImportMode = "append"
)

// ImportModes returns all modes in presentation order.
func ImportModes() []ImportMode {
	return []ImportMode{ModeUpsert, ModeNuke, ModeAppend}
}

// ParseImportMode reads a mode name case-insensitively.
func ParseImportMode(s string) (ImportMode, error) {
	m := ImportMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeUpsert, ModeNuke, ModeAppend:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported import mode %q; use 'upsert', 'nuke', or 'append'", s)
	}
}

// Description explains what the mode does to the target table.
func (m ImportMode) Description() string {
	switch m {
	case ModeUpsert:
		return "Insert new rows and update existing ones by primary key. New fields become new columns."
	case ModeNuke:
		return "Drop the table, recreate it from the inferred schema and insert every row."
	case ModeAppend:
		return "Insert every row without checking existing table content. A table created in this mode has no primary key constraint, so duplicates are possible."
	default:
		return ""
	}
}
