package core

import "time"

// RunState is the position of an import run in its state machine.
type RunState string

const (
	StateInit            RunState = "INIT"
	StateInferred        RunState = "INFERRED"
	StateReconciled      RunState = "RECONCILED"
	StateValidated       RunState = "VALIDATED"
	StateStatementsBuilt RunState = "STATEMENTS_BUILT"
	StateExecuted        RunState = "EXECUTED"
	StateExported        RunState = "EXPORTED"
	StateDone            RunState = "DONE"
	StateFailed          RunState = "FAILED"
)

// Terminal reports whether no further transition can happen.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// ImportResult is the report of one import run. It is produced once and
// never persisted.
type ImportResult struct {
	RunID string     `json:"runId"`
	Table string     `json:"table"`
	Mode  ImportMode `json:"mode"`
	State RunState   `json:"state"`

	RowsProcessed int   `json:"rowsProcessed"`
	RowsInserted  int64 `json:"rowsInserted"`
	RowsUpdated   int64 `json:"rowsUpdated"`
	// Planned is set when the counts describe statements that were rendered
	// or inspected but not executed.
	Planned bool `json:"planned"`

	ColumnsAdded []string `json:"columnsAdded"`
	Statements   int      `json:"statements"`
	Notes        []string `json:"notes,omitempty"`

	// Schema is the target table as the run leaves it: existing columns
	// followed by added ones, or the created definition.
	Schema *Table `json:"schema,omitempty"`

	// Script holds the rendered statements when the run was not executed.
	Script     []string `json:"-"`
	ExportPath string   `json:"exportPath,omitempty"`

	Warnings []Warning `json:"warnings"`
	Errors   []string  `json:"errors"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration is the wall time of the run.
func (r *ImportResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run reached Done.
func (r *ImportResult) Succeeded() bool {
	return r.State == StateDone
}
