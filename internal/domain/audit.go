package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for compliance and debugging
type AuditLog struct {
	ID             string
	UserID         string // Who performed the action
	OrganizationID string
	Action         string // What action (match.manual, rule.apply, etc.)
	ResourceType   string // Type of resource (transaction, rule)
	ResourceID     string // ID of the resource
	IPAddress      string // Client IP address
	UserAgent      string // Client user agent
	RequestID      string // Request ID for tracing
	BeforeState    JSON   // State before the action
	AfterState     JSON   // State after the action
	Status         string // success, failure, error
	ErrorMessage   string // If status=error, the error message
	CreatedAt      time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Match actions
	AuditActionMatchManual AuditAction = "match.manual"
	AuditActionMatchBulk   AuditAction = "match.bulk"

	// Rule actions
	AuditActionRuleCreate  AuditAction = "rule.create"
	AuditActionRuleApply   AuditAction = "rule.apply"
	AuditActionRulePreview AuditAction = "rule.preview"

	// Auth actions
	AuditActionUserLogin AuditAction = "user.login"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// Audit resource types
const (
	AuditResourceTransaction = "transaction"
	AuditResourceRule        = "rule"
	AuditResourceUser        = "user"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	UserID         string
	OrganizationID string
	Action         string
	ResourceType   string
	ResourceID     string
	StartDate      *time.Time
	EndDate        *time.Time
	Limit          int
	Offset         int
}
