package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SheetStatus captures background job lifecycle states.
type SheetStatus string

const (
	SheetStatusQueued     SheetStatus = "QUEUED"
	SheetStatusProcessing SheetStatus = "PROCESSING"
	SheetStatusFinished   SheetStatus = "FINISHED"
	SheetStatusFailed     SheetStatus = "FAILED"
)

// SheetJob persisted background job metadata for enrollment sheet generation.
type SheetJob struct {
	ID           string         `db:"id" json:"id"`
	Params       SheetJobParams `db:"params" json:"params"`
	Status       SheetStatus    `db:"status" json:"status"`
	Progress     int            `db:"progress" json:"progress"`
	ResultURL    *string        `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string         `db:"created_by" json:"created_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
}

// SheetJobParams stores request-scoped options persisted as JSONB.
type SheetJobParams struct {
	StudentID string            `json:"studentId"`
	Extras    map[string]string `json:"extras,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p SheetJobParams) Value() (driver.Value, error) {
	if p.Extras == nil {
		p.Extras = map[string]string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal sheet job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *SheetJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = SheetJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for SheetJobParams", value)
	}
	if len(data) == 0 {
		*p = SheetJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal sheet job params: %w", err)
	}
	return nil
}
