package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind identifies which JSON type a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Member is a single key/value pair of a JSON object.
type Member struct {
	Key   string
	Value Value
}

// Value is a decoded JSON value. Numbers keep their literal text so that
// integers wider than float64 precision survive untouched, and objects keep
// their keys in the order they were received.
type Value struct {
	kind    Kind
	boolean bool
	text    string
	members []Member
	items   []Value
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// Bool wraps a JSON boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Number wraps a JSON number literal such as "42" or "29.99".
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// String wraps a JSON string.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Object wraps an ordered list of members.
func Object(members ...Member) Value { return Value{kind: KindObject, members: members} }

// Array wraps a list of values.
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Kind returns the JSON type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean of a KindBool value and false otherwise.
func (v Value) AsBool() bool { return v.boolean }

// Literal returns the raw text of a string or number: the decoded string,
// or the number exactly as written in the document.
func (v Value) Literal() string { return v.text }

// Members returns the object members in document order.
func (v Value) Members() []Member { return v.members }

// Items returns the array elements.
func (v Value) Items() []Value { return v.items }

// IsComplex reports whether the value is an object or an array.
func (v Value) IsComplex() bool {
	return v.kind == KindObject || v.kind == KindArray
}

// Int64 returns the value as a 64-bit integer when it is an integral JSON
// number that fits the signed 64-bit range.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(v.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Float64 returns the value as a float64 when it is a JSON number.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Text renders the value the way it is stored in a character column:
// strings as-is, scalars as their JSON literal, containers as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindNull:
		return ""
	default:
		return v.JSON()
	}
}

// KeyText is the canonical text used to compare primary key values.
// Numerically equal numbers produce the same key ("1" and "1.0").
func (v Value) KeyText() string {
	if v.kind != KindNumber {
		return v.Text()
	}
	if n, ok := v.Int64(); ok {
		return strconv.FormatInt(n, 10)
	}
	if f, ok := v.Float64(); ok {
		if f >= -9.2e18 && f <= 9.2e18 && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v.text
}

// KeyTextAs is the text a key value compares by once it is stored in a
// column of type t: timestamps by their UTC instant, numeric columns by
// numeric value and character columns by the stored text. The zero type
// falls back to KeyText.
func (v Value) KeyTextAs(t SQLType) string {
	switch t.Base {
	case "":
		return v.KeyText()
	case TypeInteger, TypeBigInt:
		if v.kind == KindString {
			if n, err := strconv.ParseInt(strings.TrimSpace(v.text), 10, 64); err == nil {
				return strconv.FormatInt(n, 10)
			}
		}
		return v.KeyText()
	case TypeDouble:
		f, ok := v.Float64()
		if !ok && v.kind == KindString {
			var err error
			f, err = strconv.ParseFloat(strings.TrimSpace(v.text), 64)
			ok = err == nil
		}
		if ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return v.Text()
	case TypeTimestamp:
		if v.kind == KindString {
			if ts, ok := ParseTimestamp(v.text); ok {
				return ts.UTC().Format(time.RFC3339Nano)
			}
		}
		return v.Text()
	default:
		return v.Text()
	}
}

// JSON returns the compact JSON encoding of the value with object keys in
// their original order.
func (v Value) JSON() string {
	var sb strings.Builder
	v.writeJSON(&sb)
	return sb.String()
}

func (v Value) writeJSON(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		sb.WriteString(v.text)
	case KindString:
		sb.WriteString(quoteJSON(v.text))
	case KindObject:
		sb.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quoteJSON(m.Key))
			sb.WriteByte(':')
			m.Value.writeJSON(sb)
		}
		sb.WriteByte('}')
	case KindArray:
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.writeJSON(sb)
		}
		sb.WriteByte(']')
	}
}

func quoteJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Record is one input object. Field order is the order in which keys first
// appeared in the source document.
type Record struct {
	fields []Member
	index  map[string]int
}

// NewRecord builds a record from members. A repeated key keeps its first
// position and takes the last value.
func NewRecord(members ...Member) Record {
	r := Record{
		fields: make([]Member, 0, len(members)),
		index:  make(map[string]int, len(members)),
	}
	for _, m := range members {
		r.Set(m.Key, m.Value)
	}
	return r
}

// Set adds or replaces a field.
func (r *Record) Set(key string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Member{Key: key, Value: v})
}

// Get returns the value for key and whether the record has the key at all.
func (r Record) Get(key string) (Value, bool) {
	i, ok := r.index[key]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Fields returns the record members in source order.
func (r Record) Fields() []Member { return r.fields }

// Keys returns the field names in source order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

func (r Record) Len() int { return len(r.fields) }

// FieldOrder returns every field name seen across records, in first-seen order.
func FieldOrder(records []Record) []string {
	seen := make(map[string]bool)
	var order []string
	for _, rec := range records {
		for _, f := range rec.fields {
			if seen[f.Key] {
				continue
			}
			seen[f.Key] = true
			order = append(order, f.Key)
		}
	}
	return order
}
