package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
	"github.com/immoflow/reconcile/internal/usecase/mocks"
)

func stadtwerkeRule() *domain.Rule {
	return &domain.Rule{
		ID:             "rule-1",
		OrganizationID: "org-1",
		Name:           "stadtwerke",
		Conditions: []domain.Condition{
			{Field: domain.FieldCounterpartName, Operator: domain.OperatorContains, Value: "stadtwerke"},
		},
		Action: domain.RuleAction{Type: domain.ActionBookAs, TransactionType: "utilities"},
	}
}

func unmatchedTx(id, counterpartName string) *domain.Transaction {
	return &domain.Transaction{
		ID:              id,
		CounterpartName: counterpartName,
		MatchStatus:     domain.MatchStatusUnmatched,
	}
}

func newApplyUseCase(
	ctrl *gomock.Controller,
	txMgr *mocks.MockTransactionManager,
	txRepo *mocks.MockTransactionRepository,
	ruleRepo *mocks.MockRuleRepository,
	outboxRepo *mocks.MockOutboxRepository,
	auditRepo *mocks.MockAuditRepository,
	idGen *mocks.MockIDGenerator,
) *usecase.RuleApplyUseCase {
	return usecase.NewRuleApplyUseCase(txMgr, txRepo, ruleRepo, outboxRepo, auditRepo, idGen, passthroughRetrier(ctrl), zerolog.Nop())
}

func TestRuleApplyUseCase_Preview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	txRepo.EXPECT().ListUnmatched(gomock.Any(), "org-1", gomock.Any(), 0).Return([]*domain.Transaction{
		unmatchedTx("tx-1", "Stadtwerke München"),
		unmatchedTx("tx-2", "REWE Markt"),
		unmatchedTx("tx-3", "Stadtwerke Köln"),
	}, nil)
	auditRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	// No transaction manager, ApplyMatchTx, IncrementStats or outbox
	// expectations: a preview must not touch any of them.
	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, outboxRepo, auditRepo, idGen)

	result, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{
		RuleID:  "rule-1",
		Preview: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Preview {
		t.Error("expected preview result")
	}
	if result.Total != 2 {
		t.Errorf("expected 2 matches, got %d", result.Total)
	}
	if len(result.Matches) != 2 {
		t.Fatalf("expected 2 preview rows, got %d", len(result.Matches))
	}
	if result.Matches[0].ID != "tx-1" || result.Matches[1].ID != "tx-3" {
		t.Errorf("expected [tx-1 tx-3], got [%s %s]", result.Matches[0].ID, result.Matches[1].ID)
	}
	if result.Applied != 0 {
		t.Errorf("expected nothing applied, got %d", result.Applied)
	}
}

func TestRuleApplyUseCase_Commit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	candidates := []*domain.Transaction{
		unmatchedTx("tx-1", "Stadtwerke München"),
		unmatchedTx("tx-2", "Stadtwerke München"),
		unmatchedTx("tx-3", "Stadtwerke Köln"),
		unmatchedTx("tx-4", "Stadtwerke Köln"),
		unmatchedTx("tx-5", "Stadtwerke Berlin"),
	}

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	txRepo.EXPECT().ListUnmatched(gomock.Any(), "org-1", gomock.Any(), 0).Return(candidates, nil)

	tx := mocks.NewMockTransaction(ctrl)
	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Commit(gomock.Any()).Return(nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()

	var captured domain.MatchUpdate
	txRepo.EXPECT().
		ApplyMatchTx(gomock.Any(), tx, []string{"tx-1", "tx-2", "tx-3", "tx-4", "tx-5"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, ids []string, update domain.MatchUpdate) (int64, error) {
			captured = update
			return int64(len(ids)), nil
		})
	ruleRepo.EXPECT().IncrementStats(gomock.Any(), tx, "rule-1", int64(5), gomock.Any()).Return(nil)

	idGen.EXPECT().Generate().Return("evt-1")

	var event *domain.OutboxEvent
	outboxRepo.EXPECT().
		Create(gomock.Any(), tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, e *domain.OutboxEvent) error {
			event = e
			return nil
		})
	auditRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, outboxRepo, auditRepo, idGen)

	result, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{RuleID: "rule-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied != 5 {
		t.Errorf("expected 5 applied, got %d", result.Applied)
	}

	if captured.Status != domain.MatchStatusAuto {
		t.Errorf("expected status %q, got %q", domain.MatchStatusAuto, captured.Status)
	}
	if captured.Confidence != domain.AutoMatchConfidence {
		t.Errorf("expected confidence 0.95, got %v", captured.Confidence)
	}
	if captured.TransactionType == nil || *captured.TransactionType != "utilities" {
		t.Errorf("expected transaction type utilities, got %v", captured.TransactionType)
	}
	if captured.TenantID != nil {
		t.Error("book_as must not set a tenant")
	}

	if event == nil {
		t.Fatal("expected outbox event")
	}
	if event.EventType != domain.EventTypeRuleApplied {
		t.Errorf("expected event type %q, got %q", domain.EventTypeRuleApplied, event.EventType)
	}
	if event.AggregateID != "rule-1" {
		t.Errorf("expected aggregate rule-1, got %q", event.AggregateID)
	}
}

func TestRuleApplyUseCase_PreviewSpansFetchPages(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)

	// A full first page means more candidates may follow; the scan must
	// continue until a short page.
	page1 := make([]*domain.Transaction, usecase.CandidateFetchLimit)
	for i := range page1 {
		page1[i] = unmatchedTx(fmt.Sprintf("tx-%05d", i), "REWE Markt")
	}
	page1[17] = unmatchedTx("tx-00017", "Stadtwerke München")

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	first := txRepo.EXPECT().
		ListUnmatched(gomock.Any(), "org-1", usecase.CandidateFetchLimit, 0).
		Return(page1, nil)
	txRepo.EXPECT().
		ListUnmatched(gomock.Any(), "org-1", usecase.CandidateFetchLimit, usecase.CandidateFetchLimit).
		Return([]*domain.Transaction{unmatchedTx("tx-last", "Stadtwerke Köln")}, nil).
		After(first)
	auditRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, mocks.NewMockOutboxRepository(ctrl), auditRepo, mocks.NewMockIDGenerator(ctrl))

	result, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{
		RuleID:  "rule-1",
		Preview: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != 2 {
		t.Errorf("expected matches from both pages, got %d", result.Total)
	}
}

func TestRuleApplyUseCase_CommitIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	// The first apply classified everything; the second run sees no
	// unmatched candidates and must not open a db transaction.
	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	txRepo.EXPECT().ListUnmatched(gomock.Any(), "org-1", gomock.Any(), 0).Return([]*domain.Transaction{
		unmatchedTx("tx-9", "REWE Markt"),
	}, nil)

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, outboxRepo, auditRepo, idGen)

	result, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{RuleID: "rule-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied != 0 {
		t.Errorf("expected 0 applied, got %d", result.Applied)
	}
}

func TestRuleApplyUseCase_CommitRestrictedToIDs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	txRepo.EXPECT().ListUnmatched(gomock.Any(), "org-1", gomock.Any(), 0).Return([]*domain.Transaction{
		unmatchedTx("tx-1", "Stadtwerke München"),
		unmatchedTx("tx-2", "Stadtwerke Köln"),
		unmatchedTx("tx-3", "Stadtwerke Berlin"),
	}, nil)

	tx := mocks.NewMockTransaction(ctrl)
	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Commit(gomock.Any()).Return(nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()

	// The caller deselected tx-2 after previewing.
	txRepo.EXPECT().ApplyMatchTx(gomock.Any(), tx, []string{"tx-1", "tx-3"}, gomock.Any()).Return(int64(2), nil)
	ruleRepo.EXPECT().IncrementStats(gomock.Any(), tx, "rule-1", int64(2), gomock.Any()).Return(nil)
	idGen.EXPECT().Generate().Return("evt-1")
	outboxRepo.EXPECT().Create(gomock.Any(), tx, gomock.Any()).Return(nil)
	auditRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, outboxRepo, auditRepo, idGen)

	result, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{
		RuleID:         "rule-1",
		TransactionIDs: []string{"tx-1", "tx-3"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Applied != 2 {
		t.Errorf("expected 2 applied, got %d", result.Applied)
	}
}

func TestRuleApplyUseCase_CommitRollsBackOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	outboxRepo := mocks.NewMockOutboxRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)
	idGen := mocks.NewMockIDGenerator(ctrl)

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	txRepo.EXPECT().ListUnmatched(gomock.Any(), "org-1", gomock.Any(), 0).Return([]*domain.Transaction{
		unmatchedTx("tx-1", "Stadtwerke München"),
	}, nil)

	statsErr := errors.New("stats update failed")

	tx := mocks.NewMockTransaction(ctrl)
	txMgr.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	tx.EXPECT().Rollback(gomock.Any()).Return(nil).MinTimes(1)

	txRepo.EXPECT().ApplyMatchTx(gomock.Any(), tx, []string{"tx-1"}, gomock.Any()).Return(int64(1), nil)
	ruleRepo.EXPECT().IncrementStats(gomock.Any(), tx, "rule-1", int64(1), gomock.Any()).Return(statsErr)
	auditRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, outboxRepo, auditRepo, idGen)

	_, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{RuleID: "rule-1"})
	if !errors.Is(err, statsErr) {
		t.Fatalf("expected %v, got %v", statsErr, err)
	}
}

func TestRuleApplyUseCase_RuleNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-404").Return(nil, domain.ErrRuleNotFound)

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, mocks.NewMockOutboxRepository(ctrl), mocks.NewMockAuditRepository(ctrl), mocks.NewMockIDGenerator(ctrl))

	_, err := uc.Apply(context.Background(), operatorCaller(), usecase.ApplyRuleInput{RuleID: "rule-404"})
	if !errors.Is(err, domain.ErrRuleNotFound) {
		t.Fatalf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestRuleApplyUseCase_ViewerCanPreviewNotCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	txMgr := mocks.NewMockTransactionManager(ctrl)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	ruleRepo := mocks.NewMockRuleRepository(ctrl)
	auditRepo := mocks.NewMockAuditRepository(ctrl)

	viewer := &domain.User{ID: "user-2", OrganizationID: "org-1", Role: domain.RoleViewer}

	ruleRepo.EXPECT().GetByOrganization(gomock.Any(), "org-1", "rule-1").Return(stadtwerkeRule(), nil)
	txRepo.EXPECT().ListUnmatched(gomock.Any(), "org-1", gomock.Any(), 0).Return(nil, nil)
	auditRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	uc := newApplyUseCase(ctrl, txMgr, txRepo, ruleRepo, mocks.NewMockOutboxRepository(ctrl), auditRepo, mocks.NewMockIDGenerator(ctrl))

	if _, err := uc.Apply(context.Background(), viewer, usecase.ApplyRuleInput{RuleID: "rule-1", Preview: true}); err != nil {
		t.Fatalf("unexpected preview error: %v", err)
	}

	_, err := uc.Apply(context.Background(), viewer, usecase.ApplyRuleInput{RuleID: "rule-1"})
	if !errors.Is(err, domain.ErrInsufficientRole) {
		t.Fatalf("expected ErrInsufficientRole, got %v", err)
	}
}
