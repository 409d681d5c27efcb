package dbtypes

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB carries a raw JSON document through a jsonb (Postgres) or text
// (SQLite) column without decoding it.
type JSONB json.RawMessage

func (j *JSONB) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case string:
		*j = append((*j)[:0], v...)
	case []byte:
		*j = append((*j)[:0], v...)
	default:
		return fmt.Errorf("JSONB: unsupported Scan type %T", src)
	}
	return nil
}

// Value returns the document as a string so the simple protocol sends it as
// text rather than bytea.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("JSONB: invalid json document")
	}
	return string(j), nil
}

// IsEmpty reports whether the column holds no document or a JSON null.
func (j JSONB) IsEmpty() bool {
	trimmed := bytes.TrimSpace(j)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}
