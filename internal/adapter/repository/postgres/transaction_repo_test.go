package postgres

import (
	"strings"
	"testing"
	"time"

	"github.com/immoflow/reconcile/internal/domain"
)

func TestBuildMatchUpdateMinimal(t *testing.T) {
	now := time.Now().UTC()
	update := domain.MatchUpdate{
		Status:     domain.MatchStatusIgnored,
		Confidence: domain.ManualMatchConfidence,
		MatchedAt:  now,
		MatchedBy:  "user-1",
	}

	query, args := buildMatchUpdate([]string{"tx-1", "tx-2"}, update)

	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d: %v", len(args), args)
	}
	if strings.Contains(query, "matched_tenant_id") {
		t.Error("ignore update must not touch classification columns")
	}
	if !strings.Contains(query, "match_status = 'unmatched'") {
		t.Error("expected unmatched guard in WHERE clause")
	}
}

func TestBuildMatchUpdateFull(t *testing.T) {
	tenant := "tenant-9"
	lease := "lease-3"
	building := "building-7"
	txType := "rent"

	update := domain.MatchUpdate{
		Status:          domain.MatchStatusManual,
		Confidence:      domain.ManualMatchConfidence,
		MatchedAt:       time.Now().UTC(),
		MatchedBy:       "user-1",
		TenantID:        &tenant,
		LeaseID:         &lease,
		BuildingID:      &building,
		TransactionType: &txType,
	}

	query, args := buildMatchUpdate([]string{"tx-1"}, update)

	// 4 fixed args, 4 optional columns, plus the id array.
	if len(args) != 9 {
		t.Fatalf("expected 9 args, got %d", len(args))
	}

	for _, column := range []string{"matched_tenant_id", "matched_lease_id", "matched_building_id", "transaction_type"} {
		if !strings.Contains(query, column) {
			t.Errorf("expected %s in SET clause", column)
		}
	}
}
