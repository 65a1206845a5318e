package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchStatus is the classification lifecycle state of a bank transaction.
type MatchStatus string

const (
	// MatchStatusUnmatched means the transaction has not been classified yet.
	MatchStatusUnmatched MatchStatus = "unmatched"

	// MatchStatusManual means a user classified the transaction explicitly.
	MatchStatusManual MatchStatus = "manual"

	// MatchStatusAuto means a rule classified the transaction.
	MatchStatusAuto MatchStatus = "auto"

	// MatchStatusIgnored is a terminal non-match state.
	MatchStatusIgnored MatchStatus = "ignored"
)

// Match confidence levels. Rules are inherently less certain than a human
// decision, so automatic matches carry a lower confidence.
const (
	ManualMatchConfidence = 1.0
	AutoMatchConfidence   = 0.95
)

// Transaction represents one bank statement line belonging to a bank account.
// Transactions are created by the ingestion pipeline in state unmatched and
// are mutated only by the reconciliation engine.
type Transaction struct {
	ID                string
	AccountID         string
	CounterpartName   string
	CounterpartIBAN   string
	Purpose           string
	BookingText       string
	AmountCents       int64
	Currency          string
	BookingDate       time.Time
	MatchStatus       MatchStatus
	MatchConfidence   float64
	MatchedAt         *time.Time
	MatchedBy         string
	MatchedTenantID   string
	MatchedLeaseID    string
	MatchedBuildingID string
	TransactionType   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsUnmatched reports whether the transaction is still eligible for
// classification. Already-classified transactions are never silently
// reclassified.
func (t *Transaction) IsUnmatched() bool {
	return t.MatchStatus == MatchStatusUnmatched
}

// Amount returns the signed amount in major currency units.
func (t *Transaction) Amount() decimal.Decimal {
	return decimal.New(t.AmountCents, -2)
}

// FieldValue resolves a condition field to its raw value. It is total over
// any transaction shape: unknown fields resolve to the empty string.
func (t *Transaction) FieldValue(field ConditionField) string {
	switch field {
	case FieldCounterpartName:
		return t.CounterpartName
	case FieldCounterpartIBAN:
		return t.CounterpartIBAN
	case FieldPurpose:
		return t.Purpose
	case FieldBookingText:
		return t.BookingText
	default:
		return ""
	}
}
