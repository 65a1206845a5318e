package handler

import (
	"encoding/json"
	"net/http"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/infrastructure/metrics"
	"github.com/immoflow/reconcile/internal/usecase"
)

// MatchHandler handles manual and bulk match requests.
type MatchHandler struct {
	matchUC *usecase.MatchUseCase
	metrics *metrics.Metrics
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matchUC *usecase.MatchUseCase, m *metrics.Metrics) *MatchHandler {
	return &MatchHandler{matchUC: matchUC, metrics: m}
}

// Match classifies one or many transactions for the caller's organization.
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req dto.ManualMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.matchUC.ManualMatch(r.Context(), callerFrom(r), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to match transactions", err.Error())

		return
	}

	h.metrics.MatchedTransactions.WithLabelValues("manual").Add(float64(result.Updated))
	if result.Rule != nil {
		h.metrics.RulesCreated.Inc()
	}

	writeJSON(w, http.StatusOK, dto.ManualMatchFromResult(result))
}
