package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/immoflow/reconcile/internal/adapter/http/dto"
	"github.com/immoflow/reconcile/internal/infrastructure/metrics"
	"github.com/immoflow/reconcile/internal/usecase"
)

// RuleHandler handles rule management and retroactive application.
type RuleHandler struct {
	ruleUC  *usecase.RuleUseCase
	applyUC *usecase.RuleApplyUseCase
	metrics *metrics.Metrics
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleUC *usecase.RuleUseCase, applyUC *usecase.RuleApplyUseCase, m *metrics.Metrics) *RuleHandler {
	return &RuleHandler{ruleUC: ruleUC, applyUC: applyUC, metrics: m}
}

// Create creates a new matching rule.
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	rule, err := h.ruleUC.CreateRule(r.Context(), callerFrom(r), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create rule", err.Error())

		return
	}

	h.metrics.RulesCreated.Inc()

	writeJSON(w, http.StatusCreated, dto.RuleFromDomain(rule))
}

// List lists the organization's rules.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.ruleUC.ListRules(r.Context(), callerFrom(r), usecase.ListRulesInput{
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list rules", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.RulesFromDomain(rules))
}

// Get retrieves a rule by ID.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing rule ID", "")
		return
	}

	rule, err := h.ruleUC.GetRule(r.Context(), callerFrom(r), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get rule", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.RuleFromDomain(rule))
}

// Apply runs a rule over the organization's unmatched transactions, as a
// non-mutating preview or a committing apply. An empty body defaults to
// commit over all matches.
func (h *RuleHandler) Apply(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing rule ID", "")
		return
	}

	var req dto.ApplyRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.applyUC.Apply(r.Context(), callerFrom(r), req.ToUseCaseInput(id))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to apply rule", err.Error())

		return
	}

	if result.Preview {
		h.metrics.RulePreviews.Inc()
	} else {
		h.metrics.MatchedTransactions.WithLabelValues("auto").Add(float64(result.Applied))
	}

	writeJSON(w, http.StatusOK, dto.ApplyRuleFromResult(result))
}
