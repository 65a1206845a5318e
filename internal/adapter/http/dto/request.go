package dto

import (
	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// ConditionRequest represents one rule condition in API requests.
type ConditionRequest struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// ToDomain converts to a domain condition.
func (c ConditionRequest) ToDomain() domain.Condition {
	return domain.Condition{
		Field:    domain.ConditionField(c.Field),
		Operator: domain.ConditionOperator(c.Operator),
		Value:    c.Value,
	}
}

// ConditionsToDomain converts a condition list.
func ConditionsToDomain(conditions []ConditionRequest) []domain.Condition {
	result := make([]domain.Condition, len(conditions))
	for i, c := range conditions {
		result[i] = c.ToDomain()
	}
	return result
}

// ManualMatchRequest represents a manual or bulk match request. A single
// transaction_id and a transaction_ids list are both accepted; they are
// merged into one id set.
type ManualMatchRequest struct {
	TransactionID   string             `json:"transaction_id,omitempty"`
	TransactionIDs  []string           `json:"transaction_ids,omitempty"`
	TenantID        *string            `json:"tenant_id,omitempty"`
	LeaseID         *string            `json:"lease_id,omitempty"`
	TransactionType *string            `json:"transaction_type,omitempty"`
	BuildingID      *string            `json:"building_id,omitempty"`
	CreateRule      bool               `json:"create_rule,omitempty"`
	RuleConditions  []ConditionRequest `json:"rule_conditions,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ManualMatchRequest) ToUseCaseInput() usecase.ManualMatchInput {
	ids := make([]string, 0, len(r.TransactionIDs)+1)
	if r.TransactionID != "" {
		ids = append(ids, r.TransactionID)
	}
	ids = append(ids, r.TransactionIDs...)

	return usecase.ManualMatchInput{
		TransactionIDs:  ids,
		TenantID:        r.TenantID,
		LeaseID:         r.LeaseID,
		TransactionType: r.TransactionType,
		BuildingID:      r.BuildingID,
		CreateRule:      r.CreateRule,
		RuleConditions:  ConditionsToDomain(r.RuleConditions),
	}
}

// RuleActionRequest represents a rule action in API requests.
type RuleActionRequest struct {
	Type            string `json:"type"`
	TenantID        string `json:"tenant_id,omitempty"`
	LeaseID         string `json:"lease_id,omitempty"`
	TransactionType string `json:"transaction_type,omitempty"`
	BuildingID      string `json:"building_id,omitempty"`
}

// CreateRuleRequest represents a request to create a matching rule.
type CreateRuleRequest struct {
	Name       string             `json:"name,omitempty"`
	Conditions []ConditionRequest `json:"conditions"`
	Action     RuleActionRequest  `json:"action"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateRuleRequest) ToUseCaseInput() usecase.CreateRuleInput {
	return usecase.CreateRuleInput{
		Name:       r.Name,
		Conditions: ConditionsToDomain(r.Conditions),
		Action: domain.RuleAction{
			Type:            domain.ActionType(r.Action.Type),
			TenantID:        r.Action.TenantID,
			LeaseID:         r.Action.LeaseID,
			TransactionType: r.Action.TransactionType,
			BuildingID:      r.Action.BuildingID,
		},
	}
}

// ApplyRuleRequest represents a retroactive rule application. Preview mode
// reports the would-be matches without mutating anything.
type ApplyRuleRequest struct {
	TransactionIDs []string `json:"transaction_ids,omitempty"`
	Preview        bool     `json:"preview,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ApplyRuleRequest) ToUseCaseInput(ruleID string) usecase.ApplyRuleInput {
	return usecase.ApplyRuleInput{
		RuleID:         ruleID,
		TransactionIDs: r.TransactionIDs,
		Preview:        r.Preview,
	}
}
