package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"phoenix/internal/core"
	"phoenix/internal/introspect"
)

const columnsQuery = `
	SELECT
		c.column_name,
		c.data_type,
		c.udt_name,
		c.character_maximum_length,
		c.is_nullable,
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage k
				ON k.constraint_schema = tc.constraint_schema
				AND k.constraint_name = tc.constraint_name
				AND k.table_name = tc.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND k.column_name = c.column_name
		) AS is_primary
	FROM information_schema.columns c
	WHERE c.table_schema = current_schema() AND c.table_name = $1
	ORDER BY c.ordinal_position`

func introspectColumns(ctx context.Context, q introspect.Querier, t *core.Table) error {
	rows, err := q.QueryContext(ctx, columnsQuery, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, dataType, udtName, nullable string
		var length sql.NullInt64
		var primary bool
		if err := rows.Scan(&name, &dataType, &udtName, &length, &nullable, &primary); err != nil {
			return err
		}

		t.Columns = append(t.Columns, &core.Column{
			Name:       name,
			Type:       catalogType(dataType, udtName, length),
			Nullable:   nullable == "YES",
			PrimaryKey: primary,
		})
	}

	return rows.Err()
}

// catalogType maps an information_schema type description onto a column
// type. Types the importer never generates are kept verbatim as TypeOther.
func catalogType(dataType, udtName string, length sql.NullInt64) core.SQLType {
	raw := dataType
	switch dataType {
	case "USER-DEFINED", "ARRAY":
		raw = udtName
	case "character varying":
		if length.Valid {
			raw = fmt.Sprintf("character varying(%d)", length.Int64)
		}
	}

	typ, err := core.ParseSQLType(raw)
	if err != nil {
		return core.SQLType{Base: core.TypeOther, Raw: raw}
	}
	return typ
}
