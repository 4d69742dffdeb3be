package sqlutil

import (
	"encoding/json"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// ToNullRawMessage converts a JSON document to a nullable JSONB value; empty
// documents are stored as NULL.
func ToNullRawMessage(raw json.RawMessage) pqtype.NullRawMessage {
	if len(raw) == 0 {
		return pqtype.NullRawMessage{Valid: false}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}

// FromNullRawMessage converts a nullable JSONB value to a JSON document,
// returning "null" for NULL.
func FromNullRawMessage(val pqtype.NullRawMessage) json.RawMessage {
	if !val.Valid {
		return json.RawMessage("null")
	}
	return val.RawMessage
}

// ToStringSlice returns nil for an empty slice so that TEXT[] columns stay NULL
func ToStringSlice(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	return vals
}
