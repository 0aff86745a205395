package core

import (
	"fmt"
	"strings"
)

// MalformedInputError is returned when the input document is not a JSON
// array of objects. Offset is the byte offset reported by the decoder, or -1;
// Index is the offending array element, or -1.
type MalformedInputError struct {
	Offset int64
	Index  int
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed input")
	if e.Index >= 0 {
		fmt.Fprintf(&sb, " at element %d", e.Index)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&sb, " (byte %d)", e.Offset)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// MissingKeyError is returned when a record has no value for the primary key.
type MissingKeyError struct {
	Field string
	Index int
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("record %d has no value for primary key %q", e.Index, e.Field)
}

// DuplicateKeyError is returned when two or more records share a primary key value.
type DuplicateKeyError struct {
	Field   string
	Value   string
	Indices []int
}

func (e *DuplicateKeyError) Error() string {
	idx := make([]string, len(e.Indices))
	for i, n := range e.Indices {
		idx[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("duplicate primary key %q = %q in records [%s]", e.Field, e.Value, strings.Join(idx, ", "))
}

// InvalidIdentifierError is returned for table or column names that cannot be quoted safely.
type InvalidIdentifierError struct {
	Name   string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.Name, e.Reason)
}

// SchemaIncompatibleError is returned when the live table cannot accept the
// import as requested. Index is the offending record, or -1.
type SchemaIncompatibleError struct {
	Table  string
	Column string
	Index  int
	Reason string
}

func (e *SchemaIncompatibleError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "table %q is incompatible", e.Table)
	if e.Column != "" {
		fmt.Fprintf(&sb, " (column %q", e.Column)
		if e.Index >= 0 {
			fmt.Fprintf(&sb, ", record %d", e.Index)
		}
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Reason)
	return sb.String()
}

// DbError wraps a connection or execution failure surfaced by the database.
// Statement is the 1-based position of the failing statement, or 0 when the
// failure is not tied to one.
type DbError struct {
	Op        string
	Statement int
	SQLState  string
	SQL       string
	Err       error
}

func (e *DbError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Statement > 0 {
		fmt.Fprintf(&sb, " (statement %d)", e.Statement)
	}
	if e.SQLState != "" {
		fmt.Fprintf(&sb, " [%s]", e.SQLState)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	return sb.String()
}

func (e *DbError) Unwrap() error { return e.Err }

// WarningKind classifies non-fatal findings collected during a run.
type WarningKind string

const (
	WarnTypeAmbiguity   WarningKind = "TYPE_INFERENCE_AMBIGUITY"
	WarnTypeMismatch    WarningKind = "TYPE_MISMATCH"
	WarnKeyTypeFallback WarningKind = "KEY_TYPE_FALLBACK"
	WarnNameCollision   WarningKind = "NAME_COLLISION"
	WarnValueCleanup    WarningKind = "VALUE_CLEANUP"
)

// Warning is a non-fatal finding. It never stops a run.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Field, w.Message)
}
