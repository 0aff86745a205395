package output

import (
	"encoding/json"

	"phoenix/internal/core"
	"phoenix/internal/infer"
)

type jsonFormatter struct{}

type schemaPayload struct {
	Format       string             `json:"format"`
	Table        *core.Table        `json:"table"`
	Records      int                `json:"records"`
	SuggestedKey string             `json:"suggestedPrimaryKey,omitempty"`
	Uniqueness   []infer.Uniqueness `json:"uniqueness"`
	Warnings     []core.Warning     `json:"warnings"`
	DDL          string             `json:"ddl,omitempty"`
}

type resultPayload struct {
	Format string `json:"format"`
	*core.ImportResult
	DurationMS int64    `json:"durationMs"`
	SQL        []string `json:"sql,omitempty"`
}

type Payload interface {
	schemaPayload | resultPayload
}

func (jsonFormatter) FormatSchema(r *SchemaReport) (string, error) {
	payload := schemaPayload{Format: string(FormatJSON), Uniqueness: []infer.Uniqueness{}, Warnings: []core.Warning{}}
	if r != nil {
		payload.Table = r.Table
		payload.Records = r.Records
		payload.SuggestedKey = r.SuggestedKey
		payload.DDL = r.DDL
		if r.Uniqueness != nil {
			payload.Uniqueness = r.Uniqueness
		}
		if r.Warnings != nil {
			payload.Warnings = r.Warnings
		}
	}
	return marshalJSON(payload)
}

func (jsonFormatter) FormatResult(res *core.ImportResult) (string, error) {
	payload := resultPayload{Format: string(FormatJSON), ImportResult: res}
	if res != nil {
		payload.DurationMS = res.Duration().Milliseconds()
		payload.SQL = normalizeStatements(res.Script)
	}
	return marshalJSON(payload)
}

func marshalJSON[T Payload](payload T) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
