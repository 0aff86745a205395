// Package parser dispatches the files phoenix reads to the matching format
// parser: JSON import documents and TOML job files.
package parser

import (
	"path/filepath"
	"strings"

	"phoenix/internal/core"
	"phoenix/internal/parser/jsondoc"
	"phoenix/internal/parser/toml"
)

// ReadRecords reads an import document. Only JSON documents are supported.
func ReadRecords(path string) ([]core.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return jsondoc.ReadFile(path)
	default:
		return nil, &UnsupportedFormatError{Path: path, Want: ".json"}
	}
}

// ReadJob reads an import job file. Only TOML job files are supported.
func ReadJob(path string) (*toml.Job, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.NewParser().ParseFile(path)
	default:
		return nil, &UnsupportedFormatError{Path: path, Want: ".toml"}
	}
}

type UnsupportedFormatError struct {
	Path string
	Want string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported file format: " + e.Path + " (expected " + e.Want + ")"
}
