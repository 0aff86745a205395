// Package importer runs one JSON to PostgreSQL import. A run infers the
// schema of the records, reconciles it with the live table, validates the
// primary key and builds the statements, then either executes them in a
// single transaction or renders them into a SQL script.
//
// A run moves through the states
//
//	INIT → INFERRED → [RECONCILED] → VALIDATED → STATEMENTS_BUILT → EXECUTED|EXPORTED → DONE
//
// and ends in FAILED on the first error. Nothing is retried.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"phoenix/internal/apply"
	"phoenix/internal/core"
	"phoenix/internal/dialect"
	_ "phoenix/internal/dialect/postgres"
	"phoenix/internal/diff"
	"phoenix/internal/infer"
	"phoenix/internal/introspect"
	_ "phoenix/internal/introspect/postgresql"
	"phoenix/internal/output"
	"phoenix/internal/plan"
)

// Handle opens the transaction a live run executes in. *apply.Applier
// satisfies it.
type Handle interface {
	Begin(ctx context.Context) (apply.Tx, error)
}

// Request describes one import.
type Request struct {
	Records []core.Record
	Table   string
	Mode    core.ImportMode

	// PrimaryKey names the key field. It may also be flagged in Fields.
	PrimaryKey string

	// Fields restricts the import to the listed fields and carries type
	// overrides. Empty means every field found in the records.
	Fields []core.FieldSelection
	// Skip excludes fields from the import.
	Skip []string

	// Handle is the live database. A nil Handle renders a script instead.
	Handle Handle
	// DryRun builds the statements against the live table and rolls back
	// without executing them.
	DryRun bool

	// Existing is the known definition of the target table for runs without
	// a Handle. Nil means the table is assumed missing.
	Existing *core.Table
	// ExportPath is where the rendered script is written. Empty keeps the
	// script in the result only.
	ExportPath string

	Config Config
}

// Run executes req. The returned result is never nil: on failure it is in
// the FAILED state and carries the error message next to the returned error.
func Run(ctx context.Context, req Request) (*core.ImportResult, error) {
	cfg := req.Config.withDefaults()
	res := &core.ImportResult{
		RunID:         uuid.NewString(),
		Table:         req.Table,
		Mode:          req.Mode,
		State:         core.StateInit,
		RowsProcessed: len(req.Records),
		ColumnsAdded:  []string{},
		Warnings:      []core.Warning{},
		Errors:        []string{},
		StartedAt:     time.Now().UTC(),
	}

	r := &run{
		req: req,
		cfg: cfg,
		res: res,
		log: cfg.Logger.With("run_id", res.RunID, "table", req.Table, "mode", string(req.Mode)),
	}
	r.log.Info("import started", "records", len(req.Records), "live", req.Handle != nil, "dry_run", req.DryRun)

	err := r.execute(ctx)
	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		r.transition(core.StateFailed)
		r.log.Error("import failed", "error", err)
		return res, err
	}

	r.transition(core.StateDone)
	r.log.Info("import finished",
		"inserted", res.RowsInserted,
		"updated", res.RowsUpdated,
		"planned", res.Planned,
		"duration", res.Duration(),
	)
	return res, nil
}

type run struct {
	req Request
	cfg Config
	res *core.ImportResult
	log *slog.Logger

	gen          dialect.Generator
	introspecter introspect.Introspecter
	pk           string
}

func (r *run) execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.checkRequest(); err != nil {
		return err
	}

	d, err := dialect.GetDialect(r.cfg.Dialect)
	if err != nil {
		return err
	}
	r.gen = d.Generator()

	records := r.req.Records
	if len(r.cfg.CleanCurrency) > 0 {
		var warnings []core.Warning
		records, warnings = CleanCurrency(records, r.cfg.CleanCurrency)
		r.warn(warnings...)
	}

	selection, err := r.selection(records)
	if err != nil {
		return err
	}
	inferred, err := infer.Infer(r.req.Table, records, selection, r.cfg.Infer)
	if err != nil {
		return err
	}
	r.res.Schema = inferred.Table
	r.warn(inferred.Warnings...)
	r.transition(core.StateInferred)
	r.log.Debug("schema inferred", "columns", len(inferred.Table.Columns), "primary_key", r.pk)

	if r.req.Handle == nil {
		return r.export(ctx, records, inferred.Table)
	}
	return r.live(ctx, records, inferred.Table)
}

func (r *run) checkRequest() error {
	if err := core.ValidateIdentifier(r.req.Table); err != nil {
		return err
	}
	mode, err := core.ParseImportMode(string(r.req.Mode))
	if err != nil {
		return err
	}
	r.req.Mode, r.res.Mode = mode, mode
	if len(r.req.Records) == 0 {
		return &core.MalformedInputError{Offset: -1, Index: -1, Reason: "document contains no records"}
	}

	r.pk = r.req.PrimaryKey
	for _, f := range r.req.Fields {
		if !f.PrimaryKey {
			continue
		}
		if r.pk != "" && r.pk != f.Name {
			return fmt.Errorf("primary key %q conflicts with field %q flagged as primary key", r.pk, f.Name)
		}
		r.pk = f.Name
	}
	if r.pk != "" {
		if err := core.ValidateIdentifier(r.pk); err != nil {
			return err
		}
		if slices.Contains(r.req.Skip, r.pk) {
			return fmt.Errorf("primary key %q cannot be skipped", r.pk)
		}
	}

	if r.req.Mode == core.ModeUpsert && r.pk == "" {
		return &core.SchemaIncompatibleError{Table: r.req.Table, Index: -1, Reason: "upsert requires a primary key field"}
	}

	if r.req.Handle != nil {
		r.introspecter = r.cfg.Introspecter
		if r.introspecter == nil {
			i, err := introspect.NewIntrospecter(r.cfg.Dialect)
			if err != nil {
				return err
			}
			r.introspecter = i
		}
	}
	return nil
}

// selection turns the request's field decisions into the inference
// selection. A nil selection includes every field.
func (r *run) selection(records []core.Record) ([]core.FieldSelection, error) {
	skip := make(map[string]bool, len(r.req.Skip))
	for _, name := range r.req.Skip {
		skip[name] = true
	}

	var out []core.FieldSelection
	switch {
	case len(r.req.Fields) > 0:
		for _, f := range r.req.Fields {
			if skip[f.Name] {
				continue
			}
			f.PrimaryKey = f.Name == r.pk
			out = append(out, f)
		}
	case len(skip) > 0 || r.pk != "":
		for _, name := range core.FieldOrder(records) {
			if skip[name] {
				continue
			}
			out = append(out, core.FieldSelection{Name: name, PrimaryKey: name == r.pk})
		}
	default:
		return nil, nil
	}

	if r.pk != "" && !slices.ContainsFunc(out, func(f core.FieldSelection) bool { return f.Name == r.pk }) {
		out = append(out, core.FieldSelection{Name: r.pk, PrimaryKey: true})
	}
	if len(out) == 0 {
		return nil, &core.MalformedInputError{Offset: -1, Index: -1, Reason: "every field is skipped"}
	}
	return out, nil
}

// live runs the import inside one transaction. Every return path that does
// not commit rolls back.
func (r *run) live(ctx context.Context, records []core.Record, inferred *core.Table) error {
	tx, err := r.req.Handle.Begin(ctx)
	if err != nil {
		return asDbError("begin", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Warn("rollback failed", "error", rbErr)
			return
		}
		r.log.Debug("transaction rolled back")
	}()

	existing, err := r.introspecter.Table(ctx, tx, r.req.Table)
	if err != nil {
		return asDbError("introspect", err)
	}
	r.log.Debug("table introspected", "exists", existing != nil)

	delta, err := r.reconcile(inferred, existing, records)
	if err != nil {
		return err
	}
	if err := r.validate(records, delta); err != nil {
		return err
	}

	p, err := r.build(records, inferred, delta, !r.req.DryRun)
	if err != nil {
		return err
	}

	if r.req.DryRun {
		if err := r.render(p); err != nil {
			return err
		}
		r.transition(core.StateExported)
		return nil
	}

	if err := r.exec(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apply.NewDbError("commit", 0, "", err)
	}
	committed = true
	r.transition(core.StateExecuted)
	return nil
}

func (r *run) export(ctx context.Context, records []core.Record, inferred *core.Table) error {
	var existing *core.Table
	if r.req.Existing != nil {
		existing = r.req.Existing.Clone()
		existing.Name = r.req.Table
	}

	delta, err := r.reconcile(inferred, existing, records)
	if err != nil {
		return err
	}
	if err := r.validate(records, delta); err != nil {
		return err
	}
	p, err := r.build(records, inferred, delta, false)
	if err != nil {
		return err
	}
	if err := r.render(p); err != nil {
		return err
	}

	if r.req.ExportPath != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := output.WriteScriptFile(r.req.ExportPath, r.res); err != nil {
			return fmt.Errorf("export script: %w", err)
		}
		r.res.ExportPath = r.req.ExportPath
		r.log.Info("script exported", "path", r.req.ExportPath, "statements", len(r.res.Script))
	}
	r.transition(core.StateExported)
	return nil
}

// reconcile diffs the inferred schema against the live table. NUKE replaces
// the table, so its definition does not matter. APPEND creates the table
// without a primary key constraint.
func (r *run) reconcile(inferred, existing *core.Table, records []core.Record) (*diff.SchemaDelta, error) {
	if r.req.Mode == core.ModeNuke || existing == nil {
		def := inferred
		if r.req.Mode == core.ModeAppend {
			def = inferred.WithoutPrimaryKey()
		}
		delta := diff.Diff(def, nil)
		r.res.Schema = delta.Reconciled
		r.res.ColumnsAdded = def.ColumnNames()
		return delta, nil
	}

	delta := diff.Diff(inferred, existing)
	r.warn(delta.Warnings...)

	if r.req.Mode == core.ModeUpsert {
		keys := existing.PrimaryKeyNames()
		switch {
		case len(keys) == 0:
			return nil, &core.SchemaIncompatibleError{Table: r.req.Table, Column: r.pk, Index: -1, Reason: "table has no primary key; upsert needs one on the key field"}
		case len(keys) != 1 || keys[0] != r.pk:
			return nil, &core.SchemaIncompatibleError{
				Table:  r.req.Table,
				Column: r.pk,
				Index:  -1,
				Reason: fmt.Sprintf("table primary key is (%s), not %q", strings.Join(keys, ", "), r.pk),
			}
		}
	}

	if err := r.checkRequired(delta.Target, records); err != nil {
		return nil, err
	}

	r.res.Schema = delta.Reconciled
	r.res.ColumnsAdded = delta.AddedColumns()
	r.transition(core.StateReconciled)
	r.log.Debug("schema reconciled", "added", len(delta.Changes), "mismatches", len(delta.Mismatches), "delta", delta.String())
	return delta, nil
}

// checkRequired fails when a record has no value for a NOT NULL column of
// the live table. The key column is left to the primary key validator.
func (r *run) checkRequired(target *core.Table, records []core.Record) error {
	for _, col := range target.Columns {
		if col.Nullable || col.Name == r.pk {
			continue
		}
		for i, rec := range records {
			if v, ok := rec.Get(col.Name); !ok || v.IsNull() {
				return &core.SchemaIncompatibleError{
					Table:  r.req.Table,
					Column: col.Name,
					Index:  i,
					Reason: "column is NOT NULL but the record has no value",
				}
			}
		}
	}
	return nil
}

// validate checks the key values in the type the key column is written as.
func (r *run) validate(records []core.Record, delta *diff.SchemaDelta) error {
	if r.pk != "" {
		var keyType core.SQLType
		if col := delta.Target.FindColumn(r.pk); col != nil {
			keyType = col.Type
		}
		if err := core.ValidatePrimaryKey(records, r.pk, keyType); err != nil {
			return err
		}
	}
	r.transition(core.StateValidated)
	return nil
}

func (r *run) build(records []core.Record, inferred *core.Table, delta *diff.SchemaDelta, live bool) (*plan.Plan, error) {
	p, err := plan.Build(r.gen, plan.Input{
		Mode:      r.req.Mode,
		Inferred:  inferred,
		Delta:     delta,
		Records:   records,
		BatchSize: r.cfg.BatchSize,
		Live:      live,
	})
	if err != nil {
		return nil, err
	}

	c := p.Counts()
	r.res.Statements = c.Statements
	r.res.Notes = p.Notes
	r.transition(core.StateStatementsBuilt)
	r.log.Debug("statements built", "statements", c.Statements, "schema", c.Schema, "writes", c.Writes)
	return p, nil
}

// render fills the result with the literal script and the planned counts.
// Without table contents every row counts as inserted.
func (r *run) render(p *plan.Plan) error {
	script, err := p.Render(r.gen)
	if err != nil {
		return err
	}
	r.res.Script = script
	r.res.Planned = true
	r.res.RowsInserted = int64(p.Counts().Rows)
	r.res.RowsUpdated = 0
	return nil
}

func (r *run) exec(ctx context.Context, tx apply.Tx, p *plan.Plan) error {
	total := len(p.Statements)
	rowsTotal := p.Counts().Rows
	written := 0

	for i, stmt := range p.Statements {
		if err := ctx.Err(); err != nil {
			return apply.NewDbError("execute", i+1, stmt.SQL, err)
		}
		out, err := tx.Exec(ctx, stmt)
		if err != nil {
			return apply.NewDbError("execute", i+1, stmt.SQL, err)
		}

		if stmt.IsWrite() {
			inserted := min(out.Inserted, int64(stmt.Rows))
			r.res.RowsInserted += inserted
			if stmt.Kind == core.StatementUpsert {
				r.res.RowsUpdated += int64(stmt.Rows) - inserted
			}
			written += stmt.Rows
			r.log.Info("batch written",
				"first", stmt.FirstRow+1,
				"last", stmt.FirstRow+stmt.Rows,
				"inserted", inserted,
			)
		} else {
			r.log.Debug("statement executed", "statement", i+1, "kind", string(stmt.Kind))
		}

		r.notify(Progress{Statement: i + 1, Statements: total, RowsWritten: written, RowsTotal: rowsTotal})
	}
	return nil
}

func (r *run) transition(s core.RunState) {
	r.res.State = s
	r.log.Debug("state changed", "state", string(s))
	r.notify(Progress{Statements: r.res.Statements})
}

func (r *run) notify(p Progress) {
	if r.cfg.Progress == nil {
		return
	}
	p.RunID = r.res.RunID
	p.State = r.res.State
	r.cfg.Progress(p)
}

func (r *run) warn(warnings ...core.Warning) {
	for _, w := range warnings {
		r.log.Warn(w.Message, "kind", string(w.Kind), "field", w.Field)
	}
	r.res.Warnings = append(r.res.Warnings, warnings...)
}

func asDbError(op string, err error) error {
	var dbErr *core.DbError
	if errors.As(err, &dbErr) {
		return err
	}
	return apply.NewDbError(op, 0, "", err)
}
