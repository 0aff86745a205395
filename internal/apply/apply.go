// Package apply connects to PostgreSQL and runs statements inside a single
// transaction. It serves both the importer, which executes a plan through a
// Tx, and the apply command, which replays an exported script.
package apply

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"phoenix/internal/core"
	"phoenix/internal/parser"
)

// driverName is the database/sql driver registered by pgx's stdlib package.
const driverName = "pgx"

// PreflightResult contains a list of warnings, errors, and transactionality info about a script.
type PreflightResult struct {
	Warnings        []Warning
	Errors          []string
	IsTransactional bool
	NonTxReasons    []string
}

// Warning contains a Level of a warning, message, and actual SQL from the script.
type Warning struct {
	Level   WarningLevel
	Message string
	SQL     string
}

// WarningLevel is a const that is expandable for later and contains different levels of danger.
type WarningLevel string

const (
	WarnCaution WarningLevel = "CAUTION"
	WarnDanger  WarningLevel = "DANGER"
)

// Options struct contains all settings available during apply.
type Options struct {
	DSN    string
	DryRun bool
	Unsafe bool
	Out    io.Writer
}

// Applier holds a connection pool and runs statements against it.
type Applier struct {
	db       *sql.DB
	options  Options
	analyzer *StatementAnalyzer
	parser   *parser.SQLParser
	out      io.Writer
}

// NewApplier returns a pointer to Applier with provided options.
func NewApplier(options Options) *Applier {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	return &Applier{
		options:  options,
		analyzer: NewStatementAnalyzer(),
		parser:   parser.NewSQLParser(),
		out:      out,
	}
}

func (a *Applier) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

func (a *Applier) println(args ...any) {
	_, _ = fmt.Fprintln(a.out, args...)
}

// Connect establishes a connection with the database and pings it.
func (a *Applier) Connect(ctx context.Context) error {
	db, err := sql.Open(driverName, a.options.DSN)
	if err != nil {
		return NewDbError("connect", 0, "", fmt.Errorf("failed to open database connection: %w", err))
	}

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			return NewDbError("connect", 0, "", fmt.Errorf("failed to ping database: %w; additionally failed to close connection: %v", pingErr, closeErr))
		}
		return NewDbError("connect", 0, "", fmt.Errorf("failed to ping database: %w", pingErr))
	}

	a.db = db
	return nil
}

// Close closes the connection pool. It is safe to call without Connect.
func (a *Applier) Close() error {
	if a.db != nil {
		err := a.db.Close()
		a.db = nil
		return err
	}
	return nil
}

// Begin opens the transaction an import runs in.
func (a *Applier) Begin(ctx context.Context) (Tx, error) {
	if a.db == nil {
		return nil, &core.DbError{Op: "begin", Err: fmt.Errorf("not connected")}
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, NewDbError("begin", 0, "", err)
	}
	return &sqlTx{tx: tx}, nil
}

// ParseStatements splits a script into statements. Transaction control
// statements are dropped because the applier wraps the script itself.
func (a *Applier) ParseStatements(content string) ([]string, error) {
	stmts, err := a.parser.Split(content)
	if err != nil {
		return nil, err
	}
	out := stmts[:0]
	for _, s := range stmts {
		if isTransactionControl(s) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// PreflightChecks uses the AST-based analyzer to detect dangerous operations
// and transaction safety issues in the provided SQL statements.
func (a *Applier) PreflightChecks(statements []string) *PreflightResult {
	return a.analyzer.AnalyzeStatements(statements, a.options.Unsafe)
}

// Apply runs statements in one transaction, or only reports them in dry-run
// mode. Destructive statements need the Unsafe option.
func (a *Applier) Apply(ctx context.Context, statements []string, preflight *PreflightResult) error {
	if a.options.DryRun {
		return a.dryRun(statements, preflight)
	}
	if err := a.checkPreflight(preflight); err != nil {
		return err
	}
	return a.applyWithTransaction(ctx, statements)
}

func (a *Applier) checkPreflight(preflight *PreflightResult) error {
	if len(preflight.Errors) > 0 {
		return fmt.Errorf("preflight checks failed: %s", strings.Join(preflight.Errors, "; "))
	}
	if HasDestructiveOperations(preflight) && !a.options.Unsafe {
		return fmt.Errorf("preflight checks failed: destructive operations detected without --unsafe flag")
	}
	if !preflight.IsTransactional {
		return fmt.Errorf("preflight checks failed: script contains statements that cannot run inside a transaction")
	}
	return nil
}

func (a *Applier) dryRun(statements []string, preflight *PreflightResult) error {
	a.println("=== DRY RUN MODE ===")

	a.println("--- Preflight Checks ---")
	if len(preflight.Warnings) == 0 && len(preflight.Errors) == 0 {
		a.println("No warnings")
	}
	for _, e := range preflight.Errors {
		a.printf("[ERROR] %s\n", e)
	}
	for _, w := range preflight.Warnings {
		a.printf("[%s] %s\n", w.Level, w.Message)
		if w.SQL != "" {
			a.printf("    SQL: %s\n", w.SQL)
		}
	}

	a.println("--- Transaction Safety ---")
	if preflight.IsTransactional {
		a.println("All statements are transaction-safe")
	} else {
		a.println("Script is NOT transaction-safe")
		for _, reason := range preflight.NonTxReasons {
			a.printf("  - %s\n", reason)
		}
	}

	a.println("--- Statements to Execute ---")
	for i, stmt := range statements {
		a.printf("%d. %s\n\n", i+1, truncateSQL(stmt))
	}

	if err := a.checkPreflight(preflight); err != nil {
		return err
	}

	a.println("=== DRY RUN COMPLETE ===")
	a.println("All preflight checks passed. Run without --dry-run to apply.")
	return nil
}

func (a *Applier) applyWithTransaction(ctx context.Context, statements []string) error {
	tx, err := a.Begin(ctx)
	if err != nil {
		return err
	}

	for i, stmt := range statements {
		a.printf("Executing statement %d/%d...\n", i+1, len(statements))
		if _, err := tx.Exec(ctx, core.Statement{SQL: stmt}); err != nil {
			dbErr := NewDbError("execute", i+1, stmt, err)
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("%w; rollback also failed: %v", dbErr, rbErr)
			}
			return dbErr
		}
	}

	if err := tx.Commit(); err != nil {
		return NewDbError("commit", 0, "", err)
	}

	a.printf("Successfully applied %d statements\n", len(statements))
	return nil
}

// HasDestructiveOperations reports whether the preflight analysis found a
// dangerous statement.
func HasDestructiveOperations(preflight *PreflightResult) bool {
	for _, w := range preflight.Warnings {
		if w.Level == WarnDanger {
			return true
		}
	}
	return false
}
