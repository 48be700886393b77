package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Record contains the fields shared by every persisted entity
type Record struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Variables represents a JSON object for storing arbitrary data
type Variables map[string]interface{}

// Value implements driver.Valuer interface
func (v Variables) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner interface
func (v *Variables) Scan(value interface{}) error {
	if value == nil {
		*v = make(Variables)
		return nil
	}
	return scanJSON(value, v)
}

// scanJSON decodes a JSON/JSONB column into dst
func scanJSON(value interface{}, dst interface{}) error {
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dst)
	}
}
