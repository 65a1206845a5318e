package domain

import (
	"strings"
	"time"
)

// ConditionField identifies the transaction field a condition tests.
type ConditionField string

const (
	FieldCounterpartName ConditionField = "counterpart_name"
	FieldCounterpartIBAN ConditionField = "counterpart_iban"
	FieldPurpose         ConditionField = "purpose"
	FieldBookingText     ConditionField = "booking_text"
)

var validConditionFields = map[ConditionField]bool{
	FieldCounterpartName: true,
	FieldCounterpartIBAN: true,
	FieldPurpose:         true,
	FieldBookingText:     true,
}

// IsValid checks if the field is a known condition field.
func (f ConditionField) IsValid() bool {
	return validConditionFields[f]
}

// HasFallback reports whether the field falls back to the booking text when
// empty. Banks often fail to populate the structured counterpart name and
// purpose fields but do populate the free-text narrative.
func (f ConditionField) HasFallback() bool {
	return f == FieldCounterpartName || f == FieldPurpose
}

// ConditionOperator is the comparison a condition applies.
type ConditionOperator string

const (
	OperatorEquals     ConditionOperator = "equals"
	OperatorContains   ConditionOperator = "contains"
	OperatorStartsWith ConditionOperator = "starts_with"
)

var validConditionOperators = map[ConditionOperator]bool{
	OperatorEquals:     true,
	OperatorContains:   true,
	OperatorStartsWith: true,
}

// IsValid checks if the operator is a known condition operator.
func (o ConditionOperator) IsValid() bool {
	return validConditionOperators[o]
}

// Condition is a single field test within a rule.
type Condition struct {
	Field    ConditionField    `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    string            `json:"value"`
}

// Matches evaluates the condition against a transaction. Comparison is
// case-insensitive. When the primary value is empty and the field has a
// fallback, the booking text is tested instead; equals then degrades to
// contains because an exact match against a free-text field would never fire.
// An unknown operator never matches.
func (c Condition) Matches(t *Transaction) bool {
	value := strings.ToLower(t.FieldValue(c.Field))

	operator := c.Operator
	if value == "" && c.Field.HasFallback() {
		value = strings.ToLower(t.BookingText)
		if operator == OperatorEquals {
			operator = OperatorContains
		}
	}

	want := strings.ToLower(c.Value)

	switch operator {
	case OperatorEquals:
		return value == want
	case OperatorContains:
		return strings.Contains(value, want)
	case OperatorStartsWith:
		return strings.HasPrefix(value, want)
	default:
		return false
	}
}

// ActionType discriminates what a rule writes when it fires.
type ActionType string

const (
	// ActionAssignTenant associates the transaction with a tenant (and
	// optionally a lease) and books it as rent.
	ActionAssignTenant ActionType = "assign_tenant"

	// ActionBookAs categorizes the transaction without a tenant.
	ActionBookAs ActionType = "book_as"

	// ActionIgnore marks the transaction as ignored.
	ActionIgnore ActionType = "ignore"
)

var validActionTypes = map[ActionType]bool{
	ActionAssignTenant: true,
	ActionBookAs:       true,
	ActionIgnore:       true,
}

// IsValid checks if the action type is known.
func (a ActionType) IsValid() bool {
	return validActionTypes[a]
}

// RuleAction is the classification a rule applies to matching transactions.
// BuildingID is a side channel merged into the update regardless of type.
type RuleAction struct {
	Type            ActionType `json:"type"`
	TenantID        string     `json:"tenant_id,omitempty"`
	LeaseID         string     `json:"lease_id,omitempty"`
	TransactionType string     `json:"transaction_type,omitempty"`
	BuildingID      string     `json:"building_id,omitempty"`
}

// Validate checks the action is internally consistent.
func (a RuleAction) Validate() error {
	if !a.Type.IsValid() {
		return ErrInvalidActionType
	}

	switch a.Type {
	case ActionAssignTenant:
		if a.TenantID == "" {
			return ErrEmptyAction
		}
	case ActionBookAs:
		if a.TransactionType == "" {
			return ErrEmptyAction
		}
	}

	return nil
}

// InferAction derives a rule action from the fields of a manual match.
// A tenant takes precedence over a bare category; the building is merged in
// either way.
func InferAction(tenantID, leaseID, transactionType, buildingID string) (RuleAction, error) {
	action := RuleAction{BuildingID: buildingID}

	switch {
	case tenantID != "":
		action.Type = ActionAssignTenant
		action.TenantID = tenantID
		action.LeaseID = leaseID
		action.TransactionType = transactionType
	case transactionType != "":
		action.Type = ActionBookAs
		action.TransactionType = transactionType
	default:
		return RuleAction{}, ErrEmptyAction
	}

	return action, nil
}

// Rule is a named, reusable AND-combination of field conditions plus one
// classification action, scoped to an organization.
type Rule struct {
	ID             string
	OrganizationID string
	Name           string
	Conditions     []Condition
	Action         RuleAction
	MatchCount     int64
	LastMatchAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Matches reports whether every condition of the rule matches the
// transaction.
func (r *Rule) Matches(t *Transaction) bool {
	if len(r.Conditions) == 0 {
		return false
	}

	for _, c := range r.Conditions {
		if !c.Matches(t) {
			return false
		}
	}

	return true
}

// EvaluateRule returns the subset of transactions the rule matches. Only
// unmatched transactions are candidates, and the input ordering is preserved,
// so the result is deterministic for a given rule and transaction set.
func EvaluateRule(rule *Rule, transactions []*Transaction) []*Transaction {
	matched := make([]*Transaction, 0)

	for _, t := range transactions {
		if !t.IsUnmatched() {
			continue
		}

		if rule.Matches(t) {
			matched = append(matched, t)
		}
	}

	return matched
}

// DeriveRuleName builds a human label from the condition values.
func DeriveRuleName(conditions []Condition) string {
	values := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if c.Value != "" {
			values = append(values, c.Value)
		}
	}

	return strings.Join(values, " + ")
}
