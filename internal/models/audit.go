package models

import (
	"encoding/json"
	"time"
)

// AuditAction names what an audit entry records.
type AuditAction string

const (
	AuditActionLogin          AuditAction = "LOGIN"
	AuditActionTokenRefresh   AuditAction = "TOKEN_REFRESH"
	AuditActionLogout         AuditAction = "LOGOUT"
	AuditActionPasswordChange AuditAction = "PASSWORD_CHANGE"
	AuditActionPasswordReset  AuditAction = "PASSWORD_RESET"
	AuditActionRecordCreate   AuditAction = "RECORD_CREATE"
	AuditActionRecordUpdate   AuditAction = "RECORD_UPDATE"
	AuditActionRecordDelete   AuditAction = "RECORD_DELETE"
	AuditActionBulkAction     AuditAction = "BULK_ACTION"
	AuditActionQueueChange    AuditAction = "QUEUE_CHANGE"
)

// The audit trail is gated by the view permission of this pseudo model.
const (
	LogEntryApp   = "admin"
	LogEntryModel = "logentry"
)

// AuditLogFilter narrows an audit trail listing. Empty fields match everything.
type AuditLogFilter struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Limit      int
	Offset     int
}

// AuditLog is one row of the admin change history. Resource is an `app.model` id or a
// subsystem name such as "auth" or "queues".
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     AuditAction     `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  json.RawMessage `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// SetValues encodes v as the entry payload. Unencodable values leave the payload empty.
func (l *AuditLog) SetValues(v interface{}) *AuditLog {
	if raw, err := json.Marshal(v); err == nil {
		l.NewValues = raw
	}
	return l
}
