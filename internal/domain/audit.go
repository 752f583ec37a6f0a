package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction is the kind of access being recorded.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionRead   AuditAction = "READ"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// RequestMetadata is the best-effort request context captured with an audit
// record.
type RequestMetadata struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Method    string `json:"method,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// AuditRecord documents who touched which sensitive field categories. It
// carries field paths only, never field values, and is write-only to this
// engine: records are appended and never read back.
type AuditRecord struct {
	ID              string          `json:"id"`
	ActorID         string          `json:"actor_id"`
	Action          AuditAction     `json:"action"`
	TargetTable     string          `json:"target_table"`
	TargetRecordID  string          `json:"target_record_id,omitempty"`
	SensitiveFields []string        `json:"sensitive_fields,omitempty"`
	Metadata        RequestMetadata `json:"metadata"`
	Success         bool            `json:"success"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewAuditRecord creates a successful access record.
func NewAuditRecord(actorID string, action AuditAction, targetTable, targetRecordID string, fields []string, meta RequestMetadata) *AuditRecord {
	return &AuditRecord{
		ID:              uuid.NewString(),
		ActorID:         actorID,
		Action:          action,
		TargetTable:     targetTable,
		TargetRecordID:  targetRecordID,
		SensitiveFields: fields,
		Metadata:        meta,
		Success:         true,
		CreatedAt:       time.Now().UTC(),
	}
}
