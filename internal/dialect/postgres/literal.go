package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"phoenix/internal/core"
)

// RenderLiteral returns the statement with every $n placeholder replaced by
// the literal form of its argument. Placeholders inside quoted identifiers or
// string literals are left alone. The RETURNING clause is never rendered.
func (g *Generator) RenderLiteral(stmt core.Statement) (string, error) {
	if len(stmt.Args) == 0 {
		return stmt.SQL, nil
	}

	src := stmt.SQL
	var b strings.Builder
	b.Grow(len(src) * 2)

	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '"' || c == '\'' {
			quote = c
			b.WriteByte(c)
			continue
		}
		if c != '$' || i+1 >= len(src) || !isDigit(src[i+1]) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(src) && isDigit(src[j]) {
			j++
		}
		n, err := strconv.Atoi(src[i+1 : j])
		if err != nil || n < 1 || n > len(stmt.Args) {
			return "", fmt.Errorf("placeholder %s has no argument", src[i:j])
		}
		lit, err := g.literal(stmt.Args[n-1])
		if err != nil {
			return "", fmt.Errorf("placeholder %s: %w", src[i:j], err)
		}
		b.WriteString(lit)
		i = j - 1
	}
	return b.String(), nil
}

func (g *Generator) literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case string:
		return g.QuoteString(x), nil
	case json.RawMessage:
		return g.QuoteString(string(x)) + "::jsonb", nil
	case time.Time:
		return g.QuoteString(formatTimestamp(x)) + "::timestamp", nil
	default:
		return "", fmt.Errorf("cannot render %T as a literal", v)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
