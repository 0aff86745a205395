package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"phoenix/internal/core"
	"phoenix/internal/dialect"
)

// insertedFlag is true for rows that did not exist before the statement ran.
const insertedFlag = "RETURNING (xmax = 0) AS inserted"

// Insert renders one INSERT per batch of records, in input order. The
// table's columns decide both the column list and how values are encoded;
// fields a record does not carry are sent as NULL.
func (g *Generator) Insert(t *core.Table, records []core.Record, opts dialect.InsertOptions) ([]core.Statement, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(t.Columns) == 0 {
		return nil, &core.SchemaIncompatibleError{Table: t.Name, Index: -1, Reason: "table has no columns"}
	}

	prefix, err := g.insertPrefix(t)
	if err != nil {
		return nil, err
	}

	kind := core.StatementInsert
	var suffix, returning string
	if opts.Mode == core.ModeUpsert {
		suffix, err = g.conflictClause(t)
		if err != nil {
			return nil, err
		}
		kind = core.StatementUpsert
		if opts.Returning {
			returning = insertedFlag
		}
	}

	batch := batchSize(opts.BatchSize, len(t.Columns))
	stmts := make([]core.Statement, 0, (len(records)+batch-1)/batch)
	for start := 0; start < len(records); start += batch {
		end := min(start+batch, len(records))

		args := make([]any, 0, (end-start)*len(t.Columns))
		rows := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			placeholders := make([]string, len(t.Columns))
			for j, col := range t.Columns {
				v, _ := records[i].Get(col.Name)
				arg, err := encodeValue(t.Name, col, v, i)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				placeholders[j] = "$" + strconv.Itoa(len(args))
			}
			rows = append(rows, "("+strings.Join(placeholders, ", ")+")")
		}

		sql := prefix + strings.Join(rows, ", ")
		if suffix != "" {
			sql += " " + suffix
		}
		stmts = append(stmts, core.Statement{
			Kind:      kind,
			SQL:       sql,
			Args:      args,
			Returning: returning,
			Rows:      end - start,
			FirstRow:  start,
		})
	}
	return stmts, nil
}

func (g *Generator) insertPrefix(t *core.Table) (string, error) {
	name, err := g.QuoteIdentifier(t.Name)
	if err != nil {
		return "", err
	}
	cols, err := g.quoteColumns(t.Columns)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES ", name, strings.Join(cols, ", ")), nil
}

// conflictClause updates every non-key column on a key conflict. A table made
// only of its key has nothing to update.
func (g *Generator) conflictClause(t *core.Table) (string, error) {
	pk := t.PrimaryKey()
	if pk == nil {
		return "", &core.SchemaIncompatibleError{Table: t.Name, Index: -1, Reason: "upsert requires a primary key"}
	}
	key, err := g.QuoteIdentifier(pk.Name)
	if err != nil {
		return "", err
	}

	var sets []string
	for _, c := range t.Columns {
		if c.Name == pk.Name {
			continue
		}
		col, err := g.QuoteIdentifier(c.Name)
		if err != nil {
			return "", err
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	if len(sets) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", key), nil
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", ")), nil
}

func (g *Generator) quoteColumns(cols []*core.Column) ([]string, error) {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		q, err := g.QuoteIdentifier(c.Name)
		if err != nil {
			return nil, err
		}
		quoted[i] = q
	}
	return quoted, nil
}

// batchSize caps the requested size so one statement never exceeds the
// parameter limit.
func batchSize(requested, columns int) int {
	if requested <= 0 {
		requested = dialect.DefaultBatchSize
	}
	return max(min(requested, maxParams/columns), 1)
}
