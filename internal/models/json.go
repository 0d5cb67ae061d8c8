/**
 * @description
 * JSONMap is a helper type to persist opaque JSON payloads in Postgres (JSONB).
 *
 * @dependencies
 * - database/sql/driver
 * - encoding/json
 */

package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap stores an arbitrary JSON object in a jsonb column
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("type assertion failed for JSONMap")
	}
}

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
