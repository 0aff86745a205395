package importer

import (
	"log/slog"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
	"phoenix/internal/infer"
	"phoenix/internal/introspect"
)

// Config carries every engine setting of a run. Nothing is read from
// package-level state.
type Config struct {
	// BatchSize is the number of records per INSERT. Zero or less selects
	// dialect.DefaultBatchSize.
	BatchSize int

	Infer infer.Options

	// CleanCurrency lists suffixes such as "EUR". String values ending in one
	// of them are loaded as numbers, with a decimal comma accepted.
	CleanCurrency []string

	Dialect dialect.Type

	// Logger receives structured run events. Nil discards them.
	Logger *slog.Logger

	// Progress, when set, is called synchronously on every state transition
	// and after every executed statement.
	Progress func(Progress)

	// Introspecter replaces the dialect's registered introspecter.
	Introspecter introspect.Introspecter
}

// DefaultConfig returns the settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		BatchSize: dialect.DefaultBatchSize,
		Infer:     infer.DefaultOptions(),
		Dialect:   dialect.PostgreSQL,
	}
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = dialect.DefaultBatchSize
	}
	if c.Dialect == "" {
		c.Dialect = dialect.PostgreSQL
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Progress is a snapshot of a running import.
type Progress struct {
	RunID string
	State core.RunState

	// Statement is the 1-based position of the statement just executed, or 0
	// for a state transition.
	Statement  int
	Statements int

	RowsWritten int
	RowsTotal   int
}
