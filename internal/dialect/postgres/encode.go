package postgres

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"phoenix/internal/core"
)

// encodeValue converts v into the Go value bound for col. The column type is
// authoritative: a value that cannot be represented in it is an error rather
// than a silent conversion.
func encodeValue(table string, col *core.Column, v core.Value, index int) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	incompatible := func(reason string, args ...any) error {
		return &core.SchemaIncompatibleError{
			Table:  table,
			Column: col.Name,
			Index:  index,
			Reason: fmt.Sprintf(reason, args...),
		}
	}

	switch col.Type.Base {
	case core.TypeJSONB:
		return json.RawMessage(v.JSON()), nil

	case core.TypeBoolean:
		switch v.Kind() {
		case core.KindBool:
			return v.AsBool(), nil
		case core.KindString:
			if b, err := strconv.ParseBool(strings.TrimSpace(v.Literal())); err == nil {
				return b, nil
			}
		}
		return nil, incompatible("%s value %s is not a boolean", v.Kind(), v.Text())

	case core.TypeInteger, core.TypeBigInt:
		n, ok := integerOf(v)
		if !ok {
			return nil, incompatible("%s value %s is not an integer", v.Kind(), v.Text())
		}
		if col.Type.Base == core.TypeInteger && (n < math.MinInt32 || n > math.MaxInt32) {
			return nil, incompatible("%d is out of range for INTEGER", n)
		}
		return n, nil

	case core.TypeDouble:
		f, ok := floatOf(v)
		if !ok {
			return nil, incompatible("%s value %s is not a number", v.Kind(), v.Text())
		}
		return f, nil

	case core.TypeTimestamp:
		if v.Kind() == core.KindString {
			if ts, ok := core.ParseTimestamp(v.Literal()); ok {
				return ts.UTC(), nil
			}
		}
		return nil, incompatible("%s value %s is not a timestamp", v.Kind(), v.Text())

	case core.TypeVarchar:
		s := v.Text()
		if col.Type.Length > 0 && utf8.RuneCountInString(s) > col.Type.Length {
			return nil, incompatible("value is longer than %d characters", col.Type.Length)
		}
		return s, nil

	default:
		return v.Text(), nil
	}
}

func integerOf(v core.Value) (int64, bool) {
	switch v.Kind() {
	case core.KindNumber:
		if n, ok := v.Int64(); ok {
			return n, true
		}
		if f, ok := v.Float64(); ok && f == math.Trunc(f) && f >= -9.2e18 && f <= 9.2e18 {
			return int64(f), true
		}
	case core.KindString:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.Literal()), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func floatOf(v core.Value) (float64, bool) {
	switch v.Kind() {
	case core.KindNumber:
		return v.Float64()
	case core.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Literal()), 64)
		if err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f, true
		}
	}
	return 0, false
}

// timestampLayout is how timestamps are written into literal SQL.
const timestampLayout = "2006-01-02 15:04:05.999999"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
