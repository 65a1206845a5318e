package dto

import (
	"time"

	"github.com/immoflow/reconcile/internal/domain"
)

// AuditLogResponse represents an audit trail entry in API responses.
type AuditLogResponse struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	Action       string      `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	IPAddress    string      `json:"ip_address,omitempty"`
	RequestID    string      `json:"request_id,omitempty"`
	BeforeState  domain.JSON `json:"before_state,omitempty"`
	AfterState   domain.JSON `json:"after_state,omitempty"`
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AuditLogFromDomain converts a domain audit log to a response.
func AuditLogFromDomain(l *domain.AuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		Action:       l.Action,
		ResourceType: l.ResourceType,
		ResourceID:   l.ResourceID,
		IPAddress:    l.IPAddress,
		RequestID:    l.RequestID,
		BeforeState:  l.BeforeState,
		AfterState:   l.AfterState,
		Status:       l.Status,
		ErrorMessage: l.ErrorMessage,
		CreatedAt:    l.CreatedAt,
	}
}

// AuditLogsFromDomain converts domain audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = AuditLogFromDomain(l)
	}
	return result
}
