package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AuditDetails is a free-form JSONB payload
type AuditDetails map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB retrieval
func (d *AuditDetails) Scan(value interface{}) error {
	b, err := jsonBytes(value, "AuditDetails")
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, d)
}

// AuditLog is a recorded operator or security event
type AuditLog struct {
	ID         int64        `json:"id" db:"id"`
	Actor      string       `json:"actor" db:"actor"`
	Action     string       `json:"action" db:"action"`
	EntityType string       `json:"entity_type" db:"entity_type"`
	EntityID   string       `json:"entity_id" db:"entity_id"`
	IPAddress  string       `json:"ip_address" db:"ip_address"`
	UserAgent  string       `json:"user_agent" db:"user_agent"`
	Details    AuditDetails `json:"details" db:"details"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}
