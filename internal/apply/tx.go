package apply

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"phoenix/internal/core"
	"phoenix/internal/introspect"
)

// Outcome is what a single statement did.
type Outcome struct {
	RowsAffected int64
	// Inserted counts rows that did not exist before the statement. Only
	// write statements set it.
	Inserted int64
}

// Tx is one open transaction. Introspection queries and writes share it, so
// an import sees and changes a single consistent snapshot.
type Tx interface {
	introspect.Querier
	Exec(ctx context.Context, stmt core.Statement) (Outcome, error)
	Commit() error
	Rollback() error
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqlTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Exec runs stmt with its bound arguments. A statement carrying a RETURNING
// clause yields one boolean per written row telling whether it was inserted.
func (t *sqlTx) Exec(ctx context.Context, stmt core.Statement) (Outcome, error) {
	if stmt.Returning == "" {
		res, err := t.tx.ExecContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return Outcome{}, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Outcome{}, err
		}
		out := Outcome{RowsAffected: n}
		if stmt.IsWrite() {
			out.Inserted = n
		}
		return out, nil
	}

	rows, err := t.tx.QueryContext(ctx, stmt.ExecSQL(), stmt.Args...)
	if err != nil {
		return Outcome{}, err
	}
	defer rows.Close()

	var out Outcome
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return Outcome{}, err
		}
		out.RowsAffected++
		if inserted {
			out.Inserted++
		}
	}
	return out, rows.Err()
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a transaction that already
// ended, for example through context cancellation, is not an error.
func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// NewDbError wraps err with the statement position and, when the server
// reported one, its SQLSTATE.
func NewDbError(op string, statement int, sqlText string, err error) *core.DbError {
	dbErr := &core.DbError{Op: op, Statement: statement, SQL: truncateSQL(sqlText), Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		dbErr.SQLState = pgErr.Code
	}
	return dbErr
}
