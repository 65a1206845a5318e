package integration

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/immoflow/reconcile/internal/adapter/repository/postgres"
	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
	"github.com/immoflow/reconcile/tests/testutil"
)

func newMatchUseCase(pool *testutil.TestDB) *usecase.MatchUseCase {
	return usecase.NewMatchUseCase(
		postgres.NewTxManager(pool.Pool),
		postgres.NewTransactionRepository(pool.Pool),
		postgres.NewRuleRepository(pool.Pool),
		postgres.NewOutboxRepository(pool.Pool),
		postgres.NewAuditRepository(pool.Pool),
		postgres.NewULIDGenerator(),
		postgres.NewRetrier(zerolog.Nop()),
		zerolog.Nop(),
	)
}

func TestManualMatchFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	accountID := testDB.AccountForOrg(ctx, "org-1")
	tx1 := testDB.CreateTransaction(ctx, accountID, testutil.TransactionParams{
		CounterpartName: "Max Mueller",
		Purpose:         "Miete August",
		AmountCents:     95000,
	})
	tx2 := testDB.CreateTransaction(ctx, accountID, testutil.TransactionParams{
		CounterpartName: "Max Mueller",
		Purpose:         "Miete September",
		AmountCents:     95000,
	})

	// A transaction of a different organization, requested by id.
	foreignAccount := testDB.AccountForOrg(ctx, "org-2")
	foreignTx := testDB.CreateTransaction(ctx, foreignAccount, testutil.TransactionParams{
		CounterpartName: "Max Mueller",
		AmountCents:     95000,
	})

	caller := testDB.CreateUser(ctx, "org-1", domain.RoleOperator)
	tenantID := "tenant-mueller"

	result, err := newMatchUseCase(testDB).ManualMatch(ctx, caller, usecase.ManualMatchInput{
		TransactionIDs: []string{tx1, tx2, foreignTx},
		TenantID:       &tenantID,
	})
	if err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	if result.Updated != 2 {
		t.Fatalf("expected 2 updated transactions, got %d", result.Updated)
	}

	if result.Rule != nil {
		t.Error("no rule was requested, result should not carry one")
	}

	for _, id := range []string{tx1, tx2} {
		status, matchedBy := testDB.MatchStatus(ctx, id)
		if status != domain.MatchStatusManual {
			t.Errorf("transaction %s: expected manual status, got %s", id, status)
		}
		if matchedBy != caller.ID {
			t.Errorf("transaction %s: expected matched_by %s, got %s", id, caller.ID, matchedBy)
		}
	}

	// The foreign transaction is dropped silently, never touched.
	status, _ := testDB.MatchStatus(ctx, foreignTx)
	if status != domain.MatchStatusUnmatched {
		t.Errorf("foreign transaction was modified, status %s", status)
	}

	// The committed batch carries an outbox event in the same transaction.
	var eventCount int
	if err := testDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE event_type = $1`,
		domain.EventTypeTransactionsMatched,
	).Scan(&eventCount); err != nil {
		t.Fatalf("failed to count outbox events: %v", err)
	}
	if eventCount != 1 {
		t.Errorf("expected 1 matched event in the outbox, got %d", eventCount)
	}
}

func TestManualMatchAlreadyMatchedIsNoop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	accountID := testDB.AccountForOrg(ctx, "org-1")
	txID := testDB.CreateTransaction(ctx, accountID, testutil.TransactionParams{
		CounterpartName: "Hausmeister Schulz",
		AmountCents:     -12000,
	})

	caller := testDB.CreateUser(ctx, "org-1", domain.RoleOperator)
	uc := newMatchUseCase(testDB)
	transactionType := "maintenance"
	input := usecase.ManualMatchInput{
		TransactionIDs:  []string{txID},
		TransactionType: &transactionType,
	}

	first, err := uc.ManualMatch(ctx, caller, input)
	if err != nil {
		t.Fatalf("first match failed: %v", err)
	}
	if first.Updated != 1 {
		t.Fatalf("expected 1 updated, got %d", first.Updated)
	}

	second, err := uc.ManualMatch(ctx, caller, input)
	if err != nil {
		t.Fatalf("second match failed: %v", err)
	}
	if second.Updated != 0 {
		t.Fatalf("re-matching a matched transaction updated %d rows", second.Updated)
	}
}

func TestManualMatchDerivesRule(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	accountID := testDB.AccountForOrg(ctx, "org-1")
	txID := testDB.CreateTransaction(ctx, accountID, testutil.TransactionParams{
		CounterpartName: "Stadtwerke Berlin",
		Purpose:         "Abschlag Strom",
		AmountCents:     -8550,
	})

	caller := testDB.CreateUser(ctx, "org-1", domain.RoleOperator)
	transactionType := "utilities"

	result, err := newMatchUseCase(testDB).ManualMatch(ctx, caller, usecase.ManualMatchInput{
		TransactionIDs:  []string{txID},
		TransactionType: &transactionType,
		CreateRule:      true,
		RuleConditions: []domain.Condition{
			{Field: domain.FieldCounterpartName, Operator: domain.OperatorContains, Value: "stadtwerke"},
		},
	})
	if err != nil {
		t.Fatalf("manual match failed: %v", err)
	}

	if result.Rule == nil {
		t.Fatal("expected a derived rule")
	}

	// The rule is persisted and scoped to the caller's organization.
	ruleRepo := postgres.NewRuleRepository(testDB.Pool)
	stored, err := ruleRepo.GetByOrganization(ctx, "org-1", result.Rule.ID)
	if err != nil {
		t.Fatalf("failed to load derived rule: %v", err)
	}

	if stored.Action.Type != domain.ActionBookAs {
		t.Errorf("expected book_as action, got %s", stored.Action.Type)
	}
	if stored.MatchCount != 1 {
		t.Errorf("expected match count 1, got %d", stored.MatchCount)
	}
}
