package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// TransactionResponse represents a bank transaction in API responses.
type TransactionResponse struct {
	ID                string          `json:"id"`
	AccountID         string          `json:"account_id"`
	CounterpartName   string          `json:"counterpart_name,omitempty"`
	CounterpartIBAN   string          `json:"counterpart_iban,omitempty"`
	Purpose           string          `json:"purpose,omitempty"`
	BookingText       string          `json:"booking_text,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	AmountCents       int64           `json:"amount_cents"`
	Currency          string          `json:"currency"`
	BookingDate       time.Time       `json:"booking_date"`
	MatchStatus       string          `json:"match_status"`
	MatchConfidence   float64         `json:"match_confidence,omitempty"`
	MatchedAt         *time.Time      `json:"matched_at,omitempty"`
	MatchedBy         string          `json:"matched_by,omitempty"`
	MatchedTenantID   string          `json:"matched_tenant_id,omitempty"`
	MatchedLeaseID    string          `json:"matched_lease_id,omitempty"`
	MatchedBuildingID string          `json:"matched_building_id,omitempty"`
	TransactionType   string          `json:"transaction_type,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		CounterpartName:   t.CounterpartName,
		CounterpartIBAN:   t.CounterpartIBAN,
		Purpose:           t.Purpose,
		BookingText:       t.BookingText,
		Amount:            t.Amount(),
		AmountCents:       t.AmountCents,
		Currency:          t.Currency,
		BookingDate:       t.BookingDate,
		MatchStatus:       string(t.MatchStatus),
		MatchConfidence:   t.MatchConfidence,
		MatchedAt:         t.MatchedAt,
		MatchedBy:         t.MatchedBy,
		MatchedTenantID:   t.MatchedTenantID,
		MatchedLeaseID:    t.MatchedLeaseID,
		MatchedBuildingID: t.MatchedBuildingID,
		TransactionType:   t.TransactionType,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// RuleResponse represents a matching rule in API responses.
type RuleResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Conditions  []domain.Condition `json:"conditions"`
	Action      domain.RuleAction  `json:"action"`
	MatchCount  int64              `json:"match_count"`
	LastMatchAt *time.Time         `json:"last_match_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// RuleFromDomain converts a domain rule to a response.
func RuleFromDomain(r *domain.Rule) *RuleResponse {
	return &RuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Conditions:  r.Conditions,
		Action:      r.Action,
		MatchCount:  r.MatchCount,
		LastMatchAt: r.LastMatchAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// RulesFromDomain converts domain rules to responses.
func RulesFromDomain(rules []*domain.Rule) []*RuleResponse {
	result := make([]*RuleResponse, len(rules))
	for i, r := range rules {
		result[i] = RuleFromDomain(r)
	}
	return result
}

// BatchOutcomeResponse reports one id batch of a bulk match.
type BatchOutcomeResponse struct {
	Index     int    `json:"index"`
	Requested int    `json:"requested"`
	Updated   int    `json:"updated"`
	Error     string `json:"error,omitempty"`
}

// ManualMatchResponse represents the outcome of a manual/bulk match.
type ManualMatchResponse struct {
	Success bool                   `json:"success"`
	Updated int                    `json:"updated"`
	Batches []BatchOutcomeResponse `json:"batches,omitempty"`
	Rule    *RuleResponse          `json:"rule"`
}

// ManualMatchFromResult converts a use case result to a response.
func ManualMatchFromResult(result *usecase.ManualMatchResult) *ManualMatchResponse {
	batches := make([]BatchOutcomeResponse, len(result.Batches))
	for i, b := range result.Batches {
		batches[i] = BatchOutcomeResponse{
			Index:     b.Index,
			Requested: b.Requested,
			Updated:   b.Updated,
		}
		if b.Err != nil {
			batches[i].Error = b.Err.Error()
		}
	}

	response := &ManualMatchResponse{
		Success: true,
		Updated: result.Updated,
		Batches: batches,
	}
	if result.Rule != nil {
		response.Rule = RuleFromDomain(result.Rule)
	}

	return response
}

// RuleMatchResponse carries the key fields of one previewed match.
type RuleMatchResponse struct {
	ID              string    `json:"id"`
	CounterpartName string    `json:"counterpart_name,omitempty"`
	Purpose         string    `json:"purpose,omitempty"`
	AmountCents     int64     `json:"amount_cents"`
	BookingDate     time.Time `json:"booking_date"`
	BookingText     string    `json:"booking_text,omitempty"`
}

// ApplyRuleResponse represents the outcome of a preview or commit.
type ApplyRuleResponse struct {
	Success bool                `json:"success"`
	Matches []RuleMatchResponse `json:"matches,omitempty"`
	Total   *int                `json:"total,omitempty"`
	Applied *int                `json:"applied,omitempty"`
}

// ApplyRuleFromResult converts a use case result to a response.
func ApplyRuleFromResult(result *usecase.ApplyRuleResult) *ApplyRuleResponse {
	response := &ApplyRuleResponse{Success: true}

	if result.Preview {
		matches := make([]RuleMatchResponse, len(result.Matches))
		for i, m := range result.Matches {
			matches[i] = RuleMatchResponse{
				ID:              m.ID,
				CounterpartName: m.CounterpartName,
				Purpose:         m.Purpose,
				AmountCents:     m.AmountCents,
				BookingDate:     m.BookingDate,
				BookingText:     m.BookingText,
			}
		}

		total := result.Total
		response.Matches = matches
		response.Total = &total

		return response
	}

	applied := result.Applied
	response.Applied = &applied

	return response
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
