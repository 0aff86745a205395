package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"phoenix/internal/apply"
	"phoenix/internal/core"
	"phoenix/internal/importer"
	"phoenix/internal/infer"
	"phoenix/internal/output"
	"phoenix/internal/parser"
	"phoenix/internal/parser/toml"
)

const (
	defaultKey = "sku"
	// exportDefault is the --export value used when the flag has no path.
	exportDefault = "auto"
)

// inferFlags tunes type inference. Only flags set on the command line
// override the defaults and the job file.
type inferFlags struct {
	compactIntegers bool
	varcharMax      int
	noTimestamps    bool
	notNull         bool
}

func (f *inferFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.compactIntegers, "compact-integers", false, "Use INTEGER instead of BIGINT when every value fits 32 bits")
	cmd.Flags().IntVar(&f.varcharMax, "varchar-max", 0, "Use VARCHAR(n) for strings up to n characters; 0 keeps TEXT")
	cmd.Flags().BoolVar(&f.noTimestamps, "no-timestamps", false, "Keep ISO-8601 strings as text instead of TIMESTAMP")
	cmd.Flags().BoolVar(&f.notNull, "not-null", false, "Create fields present in every record as NOT NULL")
}

func (f *inferFlags) apply(cmd *cobra.Command, opts *infer.Options) {
	flags := cmd.Flags()
	if flags.Changed("compact-integers") {
		opts.CompactIntegers = f.compactIntegers
	}
	if flags.Changed("varchar-max") {
		opts.VarcharMaxLength = f.varcharMax
	}
	if flags.Changed("no-timestamps") {
		opts.DetectTimestamps = !f.noTimestamps
	}
	if flags.Changed("not-null") {
		opts.NotNull = f.notNull
	}
}

// importFlags are the flags shared by plan and import.
type importFlags struct {
	configPath    string
	table         string
	pk            string
	mode          string
	batchSize     int
	cleanCurrency []string
	fields        []string
	skip          []string
	format        string
	timeout       int
	infer         inferFlags
	conn          connFlags
}

func (f *importFlags) register(cmd *cobra.Command, format string) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "TOML job file; flags override its settings")
	cmd.Flags().StringVarP(&f.table, "table", "t", "", "Target table (default: derived from the file name)")
	cmd.Flags().StringVar(&f.pk, "pk", "", `Primary key field (default "sku" in upsert mode)`)
	cmd.Flags().StringVarP(&f.mode, "mode", "m", string(core.ModeUpsert), "Import mode: upsert, nuke or append")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", importer.DefaultConfig().BatchSize, "Records per INSERT statement")
	cmd.Flags().StringSliceVar(&f.cleanCurrency, "clean-currency", nil, "Currency suffixes to strip from amounts, e.g. EUR")
	cmd.Flags().StringSliceVar(&f.fields, "field", nil, "Import only this field, as name or name:TYPE (repeatable)")
	cmd.Flags().StringSliceVar(&f.skip, "skip", nil, "Exclude this field (repeatable)")
	cmd.Flags().StringVar(&f.format, "format", format, "Output format: summary, json or sql")
	cmd.Flags().IntVar(&f.timeout, "timeout", 300, "Connection timeout in seconds, 0 for none")
	f.infer.register(cmd)
	f.conn.register(cmd)
}

// settings is a fully merged run configuration: defaults, then the job
// file, then the flags the user set.
type settings struct {
	input      string
	table      string
	mode       core.ImportMode
	pk         string
	fields     []core.FieldSelection
	skip       []string
	exportPath string
	config     importer.Config
	job        *toml.Job
}

func (f *importFlags) resolve(cmd *cobra.Command, args []string) (*settings, error) {
	flags := cmd.Flags()
	s := &settings{config: importer.DefaultConfig()}

	job := &toml.Job{}
	if f.configPath != "" {
		loaded, err := parser.ReadJob(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read job file: %w", err)
		}
		job = loaded
		jobDir := filepath.Dir(f.configPath)
		job.Input = relativeTo(jobDir, job.Input)
		job.ExportPath = relativeTo(jobDir, job.ExportPath)
	}
	s.job = job

	switch {
	case len(args) > 0:
		s.input = args[0]
	case job.Input != "":
		s.input = job.Input
	default:
		return nil, fmt.Errorf("an input file is required, as an argument or [import] input")
	}

	s.table = pick(flags.Changed("table"), f.table, job.Table)
	if s.table == "" {
		s.table = defaultTable(s.input)
	}

	s.mode = job.Mode
	if flags.Changed("mode") || s.mode == "" {
		mode, err := core.ParseImportMode(f.mode)
		if err != nil {
			return nil, err
		}
		s.mode = mode
	}

	s.fields = job.Fields
	if flags.Changed("field") {
		fields, err := parseFields(f.fields)
		if err != nil {
			return nil, err
		}
		s.fields = fields
	}
	s.skip = job.Skip
	if flags.Changed("skip") {
		s.skip = f.skip
	}

	s.pk = pick(flags.Changed("pk"), f.pk, job.PrimaryKey)
	if s.pk == "" && s.mode == core.ModeUpsert && !flagsKey(s.fields) {
		s.pk = defaultKey
	}

	cfg := &s.config
	if job.BatchSize != nil {
		cfg.BatchSize = *job.BatchSize
	}
	if flags.Changed("batch-size") {
		if f.batchSize <= 0 {
			return nil, fmt.Errorf("--batch-size must be positive, got %d", f.batchSize)
		}
		cfg.BatchSize = f.batchSize
	}
	if job.CompactIntegers != nil {
		cfg.Infer.CompactIntegers = *job.CompactIntegers
	}
	if job.VarcharMaxLength != nil {
		cfg.Infer.VarcharMaxLength = *job.VarcharMaxLength
	}
	if job.DetectTimestamps != nil {
		cfg.Infer.DetectTimestamps = *job.DetectTimestamps
	}
	if job.NotNull != nil {
		cfg.Infer.NotNull = *job.NotNull
	}
	f.infer.apply(cmd, &cfg.Infer)
	if f.infer.varcharMax < 0 {
		return nil, fmt.Errorf("--varchar-max must not be negative, got %d", f.infer.varcharMax)
	}
	cfg.CleanCurrency = job.CleanCurrency
	if flags.Changed("clean-currency") {
		cfg.CleanCurrency = f.cleanCurrency
	}

	return s, nil
}

func (s *settings) request(records []core.Record) importer.Request {
	return importer.Request{
		Records:    records,
		Table:      s.table,
		Mode:       s.mode,
		PrimaryKey: s.pk,
		Fields:     s.fields,
		Skip:       s.skip,
		Config:     s.config,
	}
}

func newPlanCmd(logLevel *string) *cobra.Command {
	var flags importFlags

	planCmd := &cobra.Command{
		Use:   "plan [file.json]",
		Short: "Show the statements an import would run",
		Long: `Plan builds every statement of an import and prints it as literal SQL,
followed by the preflight analysis of the script. Nothing is executed.

Without connection flags the target table is assumed to be missing. With
--dsn or --db the plan is built against the live table inside a transaction
that is rolled back.

` + modeHelp() + `
Examples:
  phoenix plan catalog.json --pk sku
  phoenix plan catalog.json --db shop --user loader --format summary`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), *logLevel)
			if err != nil {
				return err
			}
			formatter, err := output.NewFormatter(flags.format)
			if err != nil {
				return err
			}
			s, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			records, err := parser.ReadRecords(s.input)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			req := s.request(records)
			req.Config.Logger = logger

			info := infoWriter(cmd, flags.format)
			if flags.conn.configured(&s.job.Connection) {
				applier, closeFn, err := connect(cmd, &flags, s, info)
				if err != nil {
					return err
				}
				defer closeFn()
				req.Handle = applier
				req.DryRun = true
			}

			res, runErr := importer.Run(cmd.Context(), req)
			if err := printResult(cmd.OutOrStdout(), formatter, res); err != nil {
				return err
			}
			if runErr != nil {
				return runErr
			}

			preflight := apply.NewStatementAnalyzer().AnalyzeStatements(res.Script, s.mode == core.ModeNuke)
			writePreflight(info, preflight)
			return nil
		},
	}

	flags.register(planCmd, string(output.FormatSQL))
	return planCmd
}

func newImportCmd(logLevel *string) *cobra.Command {
	var flags importFlags
	var export string

	importCmd := &cobra.Command{
		Use:   "import [file.json]",
		Short: "Load a JSON document into a table",
		Long: `Import infers the schema of a JSON array of objects, creates or evolves the
target table and writes every record in a single transaction. Any failure
rolls the whole run back.

With --export the run is rendered as a SQL script instead of executed. A
bare --export writes exports/<file>.sql.

` + modeHelp() + `
Examples:
  phoenix import catalog.json --db shop --user loader
  phoenix import catalog.json --mode nuke --dsn "postgres://loader@localhost/shop"
  phoenix import catalog.json --export
  phoenix import catalog.json --export=out/catalog.sql
  phoenix import --config job.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), *logLevel)
			if err != nil {
				return err
			}
			formatter, err := output.NewFormatter(flags.format)
			if err != nil {
				return err
			}
			s, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			s.exportPath = s.job.ExportPath
			if cmd.Flags().Changed("export") {
				s.exportPath = export
			}
			if s.exportPath == exportDefault {
				s.exportPath = core.DefaultExportPath(s.input)
			}

			records, err := parser.ReadRecords(s.input)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			info := infoWriter(cmd, flags.format)
			req := s.request(records)
			req.Config.Logger = logger
			req.Config.Progress = func(p importer.Progress) {
				if p.Statement > 0 {
					_, _ = fmt.Fprintf(info, "Executing statement %d/%d...\n", p.Statement, p.Statements)
				}
			}

			if s.exportPath != "" {
				req.ExportPath = s.exportPath
			} else {
				applier, closeFn, err := connect(cmd, &flags, s, info)
				if err != nil {
					return err
				}
				defer closeFn()
				req.Handle = applier
			}

			res, runErr := importer.Run(cmd.Context(), req)
			if err := printResult(cmd.OutOrStdout(), formatter, res); err != nil {
				return err
			}
			return runErr
		},
	}

	flags.register(importCmd, string(output.FormatSummary))
	importCmd.Flags().StringVarP(&export, "export", "e", "", "Write the run as a SQL script to this path instead of executing it")
	importCmd.Flags().Lookup("export").NoOptDefVal = exportDefault

	return importCmd
}

// connect opens the applier used as the run's database handle. The returned
// function closes it.
func connect(cmd *cobra.Command, flags *importFlags, s *settings, info io.Writer) (*apply.Applier, func(), error) {
	dsn, err := flags.conn.resolve(cmd, &s.job.Connection)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := withTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	_, _ = fmt.Fprintln(info, "Connecting to database...")
	applier := apply.NewApplier(apply.Options{DSN: dsn})
	if err := applier.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return applier, func() {
		if err := applier.Close(); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Failed to close database connection: %v\n", err)
		}
	}, nil
}

func printResult(w io.Writer, formatter output.Formatter, res *core.ImportResult) error {
	out, err := formatter.FormatResult(res)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}

func writePreflight(w io.Writer, preflight *apply.PreflightResult) {
	_, _ = fmt.Fprintln(w, "--- Preflight Checks ---")
	if len(preflight.Warnings) == 0 && len(preflight.Errors) == 0 {
		_, _ = fmt.Fprintln(w, "No warnings")
	}
	for _, e := range preflight.Errors {
		_, _ = fmt.Fprintf(w, "[ERROR] %s\n", e)
	}
	for _, warn := range preflight.Warnings {
		_, _ = fmt.Fprintf(w, "[%s] %s\n", warn.Level, warn.Message)
	}
	_, _ = fmt.Fprintln(w, "--- Transaction Safety ---")
	if preflight.IsTransactional {
		_, _ = fmt.Fprintln(w, "All statements are transaction-safe")
		return
	}
	for _, reason := range preflight.NonTxReasons {
		_, _ = fmt.Fprintf(w, "  - %s\n", reason)
	}
}

// parseFields reads --field values of the form name or name:TYPE.
func parseFields(values []string) ([]core.FieldSelection, error) {
	fields := make([]core.FieldSelection, 0, len(values))
	for _, v := range values {
		name, typ, hasType := strings.Cut(v, ":")
		sel := core.FieldSelection{Name: strings.TrimSpace(name)}
		if hasType {
			t, err := core.ParseSQLType(typ)
			if err != nil {
				return nil, fmt.Errorf("invalid --field %q: %w", v, err)
			}
			if t.Base == core.TypeOther {
				return nil, fmt.Errorf("invalid --field %q: unsupported type %q", v, typ)
			}
			sel.Type = t
		}
		fields = append(fields, sel)
	}
	return fields, nil
}

// keySelection selects every field of records with pk flagged as the key.
// An empty pk selects nothing, which lets inference see every field.
func keySelection(records []core.Record, pk string) ([]core.FieldSelection, error) {
	if pk == "" {
		return nil, nil
	}
	order := core.FieldOrder(records)
	sel := make([]core.FieldSelection, 0, len(order))
	found := false
	for _, name := range order {
		sel = append(sel, core.FieldSelection{Name: name, PrimaryKey: name == pk})
		found = found || name == pk
	}
	if !found {
		return nil, fmt.Errorf("primary key field %q does not occur in the input", pk)
	}
	return sel, nil
}

func flagsKey(fields []core.FieldSelection) bool {
	for _, f := range fields {
		if f.PrimaryKey {
			return true
		}
	}
	return false
}

func defaultTable(input string) string {
	return core.SuggestTableName(input)
}

func pick(changed bool, flag, fromJob string) string {
	if changed || fromJob == "" {
		return flag
	}
	return fromJob
}

func relativeTo(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// modeHelp lists the import modes with what each does to the table.
func modeHelp() string {
	var sb strings.Builder
	sb.WriteString("Modes:\n")
	for _, m := range core.ImportModes() {
		_, _ = fmt.Fprintf(&sb, "  %-7s %s\n", m, m.Description())
	}
	return sb.String()
}
