package domain

import "time"

// MatchUpdate is the single update payload applied to a set of transactions
// when they are classified. Nil pointer fields are left untouched by the
// store (partial update semantics).
type MatchUpdate struct {
	Status          MatchStatus
	Confidence      float64
	MatchedAt       time.Time
	MatchedBy       string
	TenantID        *string
	LeaseID         *string
	BuildingID      *string
	TransactionType *string
}

// ManualMatchUpdate builds the update for an explicit user classification.
// Only the supplied fields are written; the rest of the transaction's
// classification fields keep their current values.
func ManualMatchUpdate(actorID string, now time.Time, tenantID, leaseID, transactionType, buildingID *string) MatchUpdate {
	return MatchUpdate{
		Status:          MatchStatusManual,
		Confidence:      ManualMatchConfidence,
		MatchedAt:       now,
		MatchedBy:       actorID,
		TenantID:        tenantID,
		LeaseID:         leaseID,
		TransactionType: transactionType,
		BuildingID:      buildingID,
	}
}

// MatchUpdate builds the update a rule action applies when the rule fires.
// Assigning a tenant books the transaction as rent. Ignore overrides the
// default auto status and writes no classification fields.
func (a RuleAction) MatchUpdate(actorID string, now time.Time) MatchUpdate {
	update := MatchUpdate{
		Status:     MatchStatusAuto,
		Confidence: AutoMatchConfidence,
		MatchedAt:  now,
		MatchedBy:  actorID,
	}

	switch a.Type {
	case ActionAssignTenant:
		update.TenantID = stringPtr(a.TenantID)
		if a.LeaseID != "" {
			update.LeaseID = stringPtr(a.LeaseID)
		}
		update.TransactionType = stringPtr("rent")
	case ActionBookAs:
		update.TransactionType = stringPtr(a.TransactionType)
	case ActionIgnore:
		update.Status = MatchStatusIgnored
	}

	if a.BuildingID != "" && a.Type != ActionIgnore {
		update.BuildingID = stringPtr(a.BuildingID)
	}

	return update
}

func stringPtr(s string) *string {
	return &s
}
