package handler

import (
	"net/http"
	"time"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	auditRepo usecase.AuditRepository
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditRepo usecase.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// List lists audit log entries of the caller's organization. Filters come
// from query parameters; the organization scope always comes from the token.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	if caller == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}
	if caller.OrganizationID == "" {
		writeError(w, http.StatusForbidden, "no organization", "")
		return
	}

	filter := domain.AuditFilter{
		OrganizationID: caller.OrganizationID,
		UserID:         r.URL.Query().Get("user_id"),
		Action:         r.URL.Query().Get("action"),
		ResourceType:   r.URL.Query().Get("resource_type"),
		ResourceID:     r.URL.Query().Get("resource_id"),
		Limit:          parseIntQuery(r, "limit", 100),
		Offset:         parseIntQuery(r, "offset", 0),
	}

	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date", err.Error())
			return
		}
		filter.StartDate = &t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date", err.Error())
			return
		}
		filter.EndDate = &t
	}

	logs, err := h.auditRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit logs", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
