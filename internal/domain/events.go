package domain

import "time"

// Event types
const (
	EventTypeTransactionsMatched = "transactions.matched"
	EventTypeRuleApplied         = "rule.applied"
)

// Aggregate types
const (
	AggregateTypeTransaction = "transaction"
	AggregateTypeRule        = "rule"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransactionsMatchedEvent payload
type TransactionsMatchedEvent struct {
	TransactionIDs  []string `json:"transaction_ids"`
	OrganizationID  string   `json:"organization_id"`
	MatchedBy       string   `json:"matched_by"`
	MatchStatus     string   `json:"match_status"`
	TenantID        string   `json:"tenant_id,omitempty"`
	TransactionType string   `json:"transaction_type,omitempty"`
}

// RuleAppliedEvent payload
type RuleAppliedEvent struct {
	RuleID         string `json:"rule_id"`
	OrganizationID string `json:"organization_id"`
	Applied        int    `json:"applied"`
	AppliedBy      string `json:"applied_by"`
}
