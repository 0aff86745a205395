// Package plan holds the ordered statements of one import run. A plan is
// built once and then either executed against a live connection or rendered
// into a script.
package plan

import (
	"fmt"
	"strings"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
	"phoenix/internal/diff"
)

// Plan contains every statement of an import in execution order, plus notes
// for the operator.
type Plan struct {
	Table      string           `json:"table"`
	Mode       core.ImportMode  `json:"mode"`
	Statements []core.Statement `json:"statements"`
	Notes      []string         `json:"notes,omitempty"`
}

// Counts summarizes what a plan will do.
type Counts struct {
	Statements int `json:"statements"`
	Schema     int `json:"schema"`
	Writes     int `json:"writes"`
	Rows       int `json:"rows"`
}

// Renderer turns a parameterized statement into literal SQL.
type Renderer interface {
	RenderLiteral(stmt core.Statement) (string, error)
}

// Input is everything needed to build a plan.
type Input struct {
	Mode      core.ImportMode
	Inferred  *core.Table
	Delta     *diff.SchemaDelta
	Records   []core.Record
	BatchSize int

	// Live marks a plan that runs against a connection, so upserts can
	// report inserted and updated rows separately.
	Live bool
}

// Build generates the statements for in with gen.
//
//	NUKE:          DROP, CREATE, inserts
//	UPSERT/APPEND: CREATE or ADD COLUMN..., inserts
//
// A created table follows the delta's reconciled schema when there is one.
func Build(gen dialect.Generator, in Input) (*Plan, error) {
	p := &Plan{Table: in.Inferred.Name, Mode: in.Mode}
	def := in.Inferred
	if in.Delta != nil && !in.Delta.TableExists && in.Delta.Reconciled != nil {
		def = in.Delta.Reconciled
	}
	target := def

	switch {
	case in.Mode == core.ModeNuke:
		drop, err := gen.DropTable(def.Name)
		if err != nil {
			return nil, err
		}
		create, err := gen.CreateTable(def)
		if err != nil {
			return nil, err
		}
		p.AddStatements(drop, create)
		p.AddNote(fmt.Sprintf("table %s is dropped and recreated", def.Name))

	case in.Delta == nil || !in.Delta.TableExists:
		create, err := gen.CreateTable(def)
		if err != nil {
			return nil, err
		}
		p.AddStatements(create)
		if def.PrimaryKey() == nil && in.Inferred.PrimaryKey() != nil {
			p.AddNote(fmt.Sprintf("table %s does not exist and is created without a primary key", def.Name))
		} else {
			p.AddNote(fmt.Sprintf("table %s does not exist and is created", def.Name))
		}

	default:
		alters, err := gen.AddColumns(def.Name, in.Delta.Changes)
		if err != nil {
			return nil, err
		}
		p.AddStatements(alters...)
		if n := len(alters); n > 0 {
			p.AddNote(fmt.Sprintf("%d column(s) added to %s: %s", n, def.Name, strings.Join(in.Delta.AddedColumns(), ", ")))
		}
		target = in.Delta.Target
	}

	inserts, err := gen.Insert(target, in.Records, dialect.InsertOptions{
		Mode:      in.Mode,
		BatchSize: in.BatchSize,
		Returning: in.Live,
	})
	if err != nil {
		return nil, err
	}
	p.AddStatements(inserts...)
	if len(inserts) > 0 {
		p.AddNote(fmt.Sprintf("%d record(s) written in %d batch(es)", len(in.Records), len(inserts)))
	}

	return p, nil
}

// AddStatements appends stmts in order, dropping those with no SQL text.
func (p *Plan) AddStatements(stmts ...core.Statement) {
	for _, s := range stmts {
		if s.SQL = strings.TrimSpace(s.SQL); s.SQL == "" {
			continue
		}
		p.Statements = append(p.Statements, s)
	}
}

// AddNote records a message for the operator. Blank messages are ignored.
func (p *Plan) AddNote(msg string) {
	if msg = strings.TrimSpace(msg); msg == "" {
		return
	}
	p.Notes = append(p.Notes, msg)
}

// Counts tallies the schema statements, the writes and the rows they carry.
func (p *Plan) Counts() Counts {
	c := Counts{Statements: len(p.Statements)}
	for _, s := range p.Statements {
		if s.IsWrite() {
			c.Writes++
			c.Rows += s.Rows
			continue
		}
		c.Schema++
	}
	return c
}

// Render returns every statement as literal SQL, without a trailing
// semicolon.
func (p *Plan) Render(r Renderer) ([]string, error) {
	out := make([]string, 0, len(p.Statements))
	for i, s := range p.Statements {
		sql, err := r.RenderLiteral(s)
		if err != nil {
			return nil, fmt.Errorf("render statement %d: %w", i+1, err)
		}
		out = append(out, sql)
	}
	return out, nil
}
