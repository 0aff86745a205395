// Package diff compares an inferred table schema against the schema of an
// existing table and produces the additive changes needed to load the
// inferred records. It never produces drops or type changes.
package diff

import (
	"fmt"

	"phoenix/internal/core"
)

// Action is the kind of a schema change. Only additions exist.
type Action string

const (
	ActionAddColumn Action = "ADD_COLUMN"
)

// Change is a single additive schema change.
type Change struct {
	Action Action       `json:"action"`
	Column *core.Column `json:"column"`
}

// TypeMismatch records a column whose inferred type differs from the
// existing one. The existing type stays authoritative.
type TypeMismatch struct {
	Column   string       `json:"column"`
	Inferred core.SQLType `json:"inferred"`
	Existing core.SQLType `json:"existing"`
}

// SchemaDelta is the result of comparing an inferred schema with a live table.
type SchemaDelta struct {
	Table       string          `json:"table"`
	TableExists bool            `json:"tableExists"`
	Changes     []Change        `json:"changes,omitempty"`
	Mismatches  []*TypeMismatch `json:"mismatches,omitempty"`
	Warnings    []core.Warning  `json:"warnings,omitempty"`

	// Reconciled is the table as it stands once the changes are applied:
	// existing columns with their live types, followed by added columns.
	// When the table does not exist it is the definition to create.
	Reconciled *core.Table `json:"-"`

	// Target holds the inferred columns with their authoritative types and
	// the live primary key flag. Rows are written through these columns only,
	// so existing columns absent from the input are never touched.
	Target *core.Table `json:"-"`

	// ExistingPrimaryKey is the live table's primary key column, or "".
	ExistingPrimaryKey string `json:"existingPrimaryKey,omitempty"`
}

// AddedColumns returns the names of added columns in order.
func (d *SchemaDelta) AddedColumns() []string {
	names := make([]string, 0, len(d.Changes))
	for _, c := range d.Changes {
		names = append(names, c.Column.Name)
	}
	return names
}

// Diff compares inferred with existing. A nil existing table means the
// table does not exist; the delta is then empty and the caller creates the
// table from the inferred schema.
func Diff(inferred, existing *core.Table) *SchemaDelta {
	d := &SchemaDelta{Table: inferred.Name}
	if existing == nil {
		d.Reconciled = inferred.Clone()
		d.Target = inferred.Clone()
		return d
	}
	d.TableExists = true
	if pk := existing.PrimaryKey(); pk != nil {
		d.ExistingPrimaryKey = pk.Name
	}

	existingCols, collisions := mapColumnsByName(existing.Columns)
	for _, c := range collisions {
		d.Warnings = append(d.Warnings, core.Warning{Kind: core.WarnNameCollision, Message: "existing table columns: " + c})
	}
	for _, c := range caseOnlyMatches(inferred.Columns, existing.Columns) {
		d.Warnings = append(d.Warnings, core.Warning{Kind: core.WarnNameCollision, Field: c, Message: "differs from an existing column only by case and will be added as a new column"})
	}

	reconciled := existing.Clone()
	reconciled.Name = inferred.Name
	target := &core.Table{Name: inferred.Name, Columns: make([]*core.Column, 0, len(inferred.Columns))}

	for _, col := range inferred.Columns {
		live, ok := existingCols[col.Name]
		if !ok {
			added := &core.Column{Name: col.Name, Type: col.Type, Nullable: true}
			d.Changes = append(d.Changes, Change{Action: ActionAddColumn, Column: added})
			cp, tcp := *added, *added
			reconciled.Columns = append(reconciled.Columns, &cp)
			target.Columns = append(target.Columns, &tcp)
			continue
		}
		lcp := *live
		target.Columns = append(target.Columns, &lcp)
		if !live.Type.Equal(col.Type) {
			d.Mismatches = append(d.Mismatches, &TypeMismatch{Column: col.Name, Inferred: col.Type, Existing: live.Type})
			d.Warnings = append(d.Warnings, core.Warning{
				Kind:    core.WarnTypeMismatch,
				Field:   col.Name,
				Message: fmt.Sprintf("inferred %s but the table has %s; keeping %s", col.Type, live.Type, live.Type),
			})
		}
	}

	d.Reconciled = reconciled
	d.Target = target
	return d
}

// IsEmpty reports whether the delta adds nothing.
func (d *SchemaDelta) IsEmpty() bool {
	return len(d.Changes) == 0
}
