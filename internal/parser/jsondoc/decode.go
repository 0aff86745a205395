// Package jsondoc decodes an import document, a JSON array of objects, into
// core records. Object keys keep the order in which they appear in the
// source, and numbers keep their literal text.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"phoenix/internal/core"
)

// ReadFile opens path and decodes it as an import document.
func ReadFile(path string) ([]core.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("jsondoc: open file %q: %w", path, err)
	}
	defer f.Close()

	return Decode(f)
}

// DecodeBytes decodes an in-memory import document.
func DecodeBytes(b []byte) ([]core.Record, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads the whole document from r. Any structural problem is
// reported as a *core.MalformedInputError.
func Decode(r io.Reader) ([]core.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, malformed(dec, -1, "document is empty", nil)
		}
		return nil, malformed(dec, -1, "invalid JSON", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, malformed(dec, -1, "top-level value must be an array of objects", nil)
	}

	var records []core.Record
	for index := 0; dec.More(); index++ {
		v, err := readValue(dec)
		if err != nil {
			return nil, malformed(dec, index, "invalid JSON", err)
		}
		if v.Kind() != core.KindObject {
			return nil, malformed(dec, index, fmt.Sprintf("element is a %s, not an object", v.Kind()), nil)
		}
		records = append(records, core.NewRecord(v.Members()...))
	}

	if _, err := dec.Token(); err != nil {
		return nil, malformed(dec, len(records), "unterminated array", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(dec, -1, "unexpected data after the top-level array", err)
	}

	return records, nil
}

func readValue(dec *json.Decoder) (core.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return core.Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return core.Null(), nil
	case bool:
		return core.Bool(t), nil
	case json.Number:
		return core.Number(t.String()), nil
	case string:
		return core.String(t), nil
	case json.Delim:
		switch t {
		case '{':
			return readObject(dec)
		case '[':
			return readArray(dec)
		}
	}
	return core.Value{}, fmt.Errorf("unexpected token %v", tok)
}

func readObject(dec *json.Decoder) (core.Value, error) {
	var members []core.Member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return core.Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return core.Value{}, fmt.Errorf("object key must be a string, got %v", tok)
		}
		v, err := readValue(dec)
		if err != nil {
			return core.Value{}, err
		}
		members = append(members, core.Member{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return core.Value{}, err
	}
	return core.Object(members...), nil
}

func readArray(dec *json.Decoder) (core.Value, error) {
	var items []core.Value
	for dec.More() {
		v, err := readValue(dec)
		if err != nil {
			return core.Value{}, err
		}
		items = append(items, v)
	}
	if _, err := dec.Token(); err != nil {
		return core.Value{}, err
	}
	return core.Array(items...), nil
}

func malformed(dec *json.Decoder, index int, reason string, err error) *core.MalformedInputError {
	offset := dec.InputOffset()
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
		reason = fmt.Sprintf("%s: %s", reason, syntaxErr.Error())
	} else if err != nil && !errors.Is(err, io.EOF) {
		reason = fmt.Sprintf("%s: %s", reason, err.Error())
	}
	return &core.MalformedInputError{Offset: offset, Index: index, Reason: reason, Err: err}
}
