// Package infer derives a table schema from heterogeneous JSON records.
//
// Every included field is profiled across all records and mapped to a single
// SQL type by a fixed precedence: JSONB, BOOLEAN, BIGINT (or INTEGER),
// DOUBLE PRECISION, TIMESTAMP, VARCHAR(n), and TEXT for everything else.
// Inference is a pure function of its inputs.
package infer

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
)

// Options tunes the type thresholds.
type Options struct {
	// CompactIntegers selects INTEGER instead of BIGINT when every value fits 32 bits.
	CompactIntegers bool
	// VarcharMaxLength selects VARCHAR(n) for string fields no longer than n
	// characters. Zero disables VARCHAR and strings always map to TEXT.
	VarcharMaxLength int
	// DetectTimestamps maps ISO-8601 strings to TIMESTAMP.
	DetectTimestamps bool
	// NotNull marks fields that hold a value in every record NOT NULL.
	// Otherwise only the primary key column is non-nullable.
	NotNull bool
}

// DefaultOptions returns the options used when the caller sets none.
func DefaultOptions() Options {
	return Options{DetectTimestamps: true}
}

// Result is the outcome of inference for one run.
type Result struct {
	Table    *core.Table
	Profiles []*FieldProfile
	Warnings []core.Warning
}

// Profile returns the profile of the named field, or nil.
func (r *Result) Profile(name string) *FieldProfile {
	for _, p := range r.Profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Infer builds the schema of table from records.
//
// An empty selection includes every field seen in the records. Otherwise
// only the selected fields are included; selected fields that never appear
// become nullable TEXT columns. Columns other than the key are nullable
// unless opts.NotNull is set. Column order is first-seen field order,
// followed by unseen selected fields in selection order.
func Infer(table string, records []core.Record, selection []core.FieldSelection, opts Options) (*Result, error) {
	fields, bySel, pk, err := resolveSelection(records, selection)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Table:    &core.Table{Name: table, Columns: make([]*core.Column, 0, len(fields))},
		Profiles: Profile(records, fields),
	}

	for _, p := range res.Profiles {
		col := &core.Column{Name: p.Name, Nullable: !opts.NotNull || p.Nullable()}

		if sel, ok := bySel[p.Name]; ok && !sel.Type.IsZero() {
			col.Type = sel.Type
		} else {
			t, warn := ResolveType(p, opts)
			col.Type = t
			if warn != nil {
				res.Warnings = append(res.Warnings, *warn)
			}
		}

		if p.Name == pk {
			col.PrimaryKey = true
			col.Nullable = false
			if !col.Type.Comparable() {
				res.Warnings = append(res.Warnings, core.Warning{
					Kind:    core.WarnKeyTypeFallback,
					Field:   p.Name,
					Message: fmt.Sprintf("primary key cannot be %s; using TEXT", col.Type),
				})
				col.Type = core.Text
			}
		}

		res.Table.Columns = append(res.Table.Columns, col)
	}

	return res, nil
}

func resolveSelection(records []core.Record, selection []core.FieldSelection) ([]string, map[string]core.FieldSelection, string, error) {
	order := core.FieldOrder(records)
	bySel := make(map[string]core.FieldSelection, len(selection))
	pk := ""

	for _, sel := range selection {
		if err := core.ValidateIdentifier(sel.Name); err != nil {
			return nil, nil, "", err
		}
		if _, dup := bySel[sel.Name]; dup {
			return nil, nil, "", fmt.Errorf("field %q selected more than once", sel.Name)
		}
		if sel.PrimaryKey {
			if pk != "" {
				return nil, nil, "", fmt.Errorf("only one primary key field is allowed, got %q and %q", pk, sel.Name)
			}
			pk = sel.Name
		}
		bySel[sel.Name] = sel
	}

	if len(selection) == 0 {
		for _, name := range order {
			if err := core.ValidateIdentifier(name); err != nil {
				return nil, nil, "", err
			}
		}
		return order, bySel, pk, nil
	}

	fields := make([]string, 0, len(selection))
	seen := make(map[string]bool, len(selection))
	for _, name := range order {
		if _, ok := bySel[name]; ok {
			fields = append(fields, name)
			seen[name] = true
		}
	}
	for _, sel := range selection {
		if !seen[sel.Name] {
			fields = append(fields, sel.Name)
		}
	}
	return fields, bySel, pk, nil
}

// ResolveType maps a profile to a column type. The returned warning is set
// when the field mixes incompatible kinds.
func ResolveType(p *FieldProfile, opts Options) (core.SQLType, *core.Warning) {
	switch {
	case p.Present == 0:
		return core.Text, nil
	case p.only(core.KindObject, core.KindArray):
		return core.JSONB, nil
	case p.only(core.KindBool):
		return core.Boolean, nil
	case p.only(core.KindNumber) && p.AllIntegral:
		if opts.CompactIntegers && p.AllInt32 {
			return core.Integer, nil
		}
		return core.BigInt, nil
	case p.only(core.KindNumber):
		return core.Double, nil
	case p.only(core.KindString) && opts.DetectTimestamps && p.AllTimestamp:
		return core.Timestamp, nil
	case p.only(core.KindString):
		if opts.VarcharMaxLength > 0 && p.MaxLength <= opts.VarcharMaxLength {
			return core.Varchar(opts.VarcharMaxLength), nil
		}
		return core.Text, nil
	}

	kinds := p.KindsSeen()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return core.Text, &core.Warning{
		Kind:    core.WarnTypeAmbiguity,
		Field:   p.Name,
		Message: fmt.Sprintf("mixed value kinds (%s); using TEXT", strings.Join(names, ", ")),
	}
}
