package core

// StatementKind is used to identify what kind of statement a plan carries.
type StatementKind string

const (
	StatementDrop      StatementKind = "DROP"
	StatementCreate    StatementKind = "CREATE"
	StatementAddColumn StatementKind = "ADD_COLUMN"
	StatementInsert    StatementKind = "INSERT"
	StatementUpsert    StatementKind = "UPSERT"
)

// Statement is a single SQL statement together with its bound parameters.
// Parameters are never interpolated into SQL; Returning is only attached
// when the statement runs against a live connection.
type Statement struct {
	Kind StatementKind `json:"kind"`
	SQL  string        `json:"sql"`
	Args []any         `json:"-"`

	// Returning is a clause appended for live execution so the executor can
	// tell inserted rows from updated ones.
	Returning string `json:"-"`

	// Rows is the number of input records carried by an insert batch.
	Rows int `json:"rows,omitempty"`
	// FirstRow is the index of the first record in the batch.
	FirstRow int `json:"firstRow,omitempty"`
}

// ExecSQL returns the SQL text sent to the database.
func (s Statement) ExecSQL() string {
	if s.Returning == "" {
		return s.SQL
	}
	return s.SQL + " " + s.Returning
}

// IsWrite reports whether the statement writes rows.
func (s Statement) IsWrite() bool {
	return s.Kind == StatementInsert || s.Kind == StatementUpsert
}
