package domain

import (
	"encoding/json"
	"time"
)

// AuditStatus is the outcome of the last vault audit.
type AuditStatus string

const (
	AuditPending            AuditStatus = "pending"
	AuditPassed             AuditStatus = "passed"
	AuditPassedWithWarnings AuditStatus = "passed_with_warnings"
	AuditFailed             AuditStatus = "failed"
)

// IdentityVault is a user's brand configuration. Version increments on every
// successful write.
type IdentityVault struct {
	UserID      string
	Data        json.RawMessage
	AuditStatus AuditStatus
	Version     int
	UpdatedAt   time.Time
}
