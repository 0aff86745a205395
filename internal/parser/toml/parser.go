// Package toml provides a parser for phoenix import job files.
// A job file pins down everything a run needs besides the database password:
// the input document, target table, import mode, primary key, per-field type
// overrides and engine options. Command-line flags override it.
package toml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"phoenix/internal/core"
)

// jobFile is the top-level TOML document.
type jobFile struct {
	Import     tomlImport     `toml:"import"`
	Options    tomlOptions    `toml:"options"`
	Connection tomlConnection `toml:"connection"`
	Fields     []tomlField    `toml:"fields"`
}

// tomlImport maps [import].
type tomlImport struct {
	Input      string `toml:"input"`
	Table      string `toml:"table"`
	Mode       string `toml:"mode"`
	PrimaryKey string `toml:"primary_key"`
	Export     string `toml:"export"`
}

// tomlOptions maps [options].
type tomlOptions struct {
	BatchSize        int      `toml:"batch_size"`
	CompactIntegers  bool     `toml:"compact_integers"`
	VarcharMaxLength int      `toml:"varchar_max_length"`
	DetectTimestamps bool     `toml:"detect_timestamps"`
	NotNull          bool     `toml:"not_null"`
	CleanCurrency    []string `toml:"clean_currency"`
}

// tomlConnection maps [connection]. Passwords are deliberately not read from job files.
type tomlConnection struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	SSLMode  string `toml:"sslmode"`
}

// tomlField maps [[fields]].
type tomlField struct {
	Name       string `toml:"name"`
	Type       string `toml:"type"`
	PrimaryKey bool   `toml:"primary_key"`
	Skip       bool   `toml:"skip"`
}

// Job is a decoded and validated import job. Pointer fields are nil when
// the file does not set them, so callers can layer defaults and flags.
type Job struct {
	Input      string
	Table      string
	Mode       core.ImportMode
	PrimaryKey string
	ExportPath string

	BatchSize        *int
	CompactIntegers  *bool
	VarcharMaxLength *int
	DetectTimestamps *bool
	NotNull          *bool
	CleanCurrency    []string

	Connection Connection

	// Fields lists per-field decisions in file order; Skip lists excluded fields.
	Fields []core.FieldSelection
	Skip   []string
}

// Connection holds the connection settings of a job file.
type Connection struct {
	DSN      string
	Host     string
	Port     int
	Database string
	User     string
	SSLMode  string
}

// Parser reads phoenix TOML job files.
type Parser struct{}

// NewParser creates a new TOML job parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile opens the file at the given path and parses it as a job file.
func (p *Parser) ParseFile(path string) (*Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("toml: open file %q: %w", path, err)
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads TOML content from reader and returns the corresponding Job.
func (p *Parser) Parse(r io.Reader) (*Job, error) {
	var jf jobFile
	md, err := toml.NewDecoder(r).Decode(&jf)
	if err != nil {
		return nil, fmt.Errorf("toml: decode error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("toml: unknown keys: %s", strings.Join(keys, ", "))
	}

	return newConverter(&jf, md).convert()
}

type converter struct {
	jf         *jobFile
	md         toml.MetaData
	seenFields map[string]bool
}

func newConverter(jf *jobFile, md toml.MetaData) *converter {
	return &converter{
		jf:         jf,
		md:         md,
		seenFields: make(map[string]bool, len(jf.Fields)),
	}
}

func (c *converter) convert() (*Job, error) {
	imp := c.jf.Import
	job := &Job{
		Input:      strings.TrimSpace(imp.Input),
		Table:      imp.Table,
		PrimaryKey: imp.PrimaryKey,
		ExportPath: strings.TrimSpace(imp.Export),
		Connection: Connection(c.jf.Connection),
	}

	if imp.Table != "" {
		if err := core.ValidateIdentifier(imp.Table); err != nil {
			return nil, fmt.Errorf("toml: [import] table: %w", err)
		}
	}
	if imp.Mode != "" {
		mode, err := core.ParseImportMode(imp.Mode)
		if err != nil {
			return nil, fmt.Errorf("toml: [import] mode: %w", err)
		}
		job.Mode = mode
	}

	if err := c.convertOptions(job); err != nil {
		return nil, err
	}

	for i := range c.jf.Fields {
		if err := c.convertField(job, &c.jf.Fields[i]); err != nil {
			return nil, fmt.Errorf("toml: field %q: %w", c.jf.Fields[i].Name, err)
		}
	}

	return job, nil
}

func (c *converter) convertOptions(job *Job) error {
	o := c.jf.Options
	if c.md.IsDefined("options", "batch_size") {
		if o.BatchSize <= 0 {
			return fmt.Errorf("toml: [options] batch_size must be positive, got %d", o.BatchSize)
		}
		job.BatchSize = &o.BatchSize
	}
	if c.md.IsDefined("options", "varchar_max_length") {
		if o.VarcharMaxLength < 0 {
			return fmt.Errorf("toml: [options] varchar_max_length must not be negative, got %d", o.VarcharMaxLength)
		}
		job.VarcharMaxLength = &o.VarcharMaxLength
	}
	if c.md.IsDefined("options", "compact_integers") {
		job.CompactIntegers = &o.CompactIntegers
	}
	if c.md.IsDefined("options", "detect_timestamps") {
		job.DetectTimestamps = &o.DetectTimestamps
	}
	if c.md.IsDefined("options", "not_null") {
		job.NotNull = &o.NotNull
	}
	for _, s := range o.CleanCurrency {
		if s = strings.TrimSpace(s); s != "" {
			job.CleanCurrency = append(job.CleanCurrency, s)
		}
	}
	return nil
}

func (c *converter) convertField(job *Job, f *tomlField) error {
	if err := core.ValidateIdentifier(f.Name); err != nil {
		return err
	}
	if c.seenFields[f.Name] {
		return fmt.Errorf("declared more than once")
	}
	c.seenFields[f.Name] = true

	if f.Skip {
		if f.PrimaryKey {
			return fmt.Errorf("a skipped field cannot be the primary key")
		}
		job.Skip = append(job.Skip, f.Name)
		return nil
	}

	sel := core.FieldSelection{Name: f.Name, PrimaryKey: f.PrimaryKey}
	if f.Type != "" {
		t, err := core.ParseSQLType(f.Type)
		if err != nil {
			return err
		}
		if t.Base == core.TypeOther {
			return fmt.Errorf("unsupported type %q", f.Type)
		}
		sel.Type = t
	}

	if f.PrimaryKey {
		if job.PrimaryKey != "" && job.PrimaryKey != f.Name {
			return fmt.Errorf("conflicts with [import] primary_key %q", job.PrimaryKey)
		}
		job.PrimaryKey = f.Name
	}

	job.Fields = append(job.Fields, sel)
	return nil
}
