package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/immoflow/reconcile/internal/domain"
)

// RuleApplyUseCase applies one existing rule across all of an organization's
// currently-unmatched transactions, either as a non-mutating preview or as a
// committing apply.
type RuleApplyUseCase struct {
	txManager       TransactionManager
	transactionRepo TransactionRepository
	ruleRepo        RuleRepository
	outboxRepo      OutboxRepository
	auditRepo       AuditRepository
	idGen           IDGenerator
	retrier         Retrier
	logger          zerolog.Logger
}

// NewRuleApplyUseCase creates a new RuleApplyUseCase.
func NewRuleApplyUseCase(
	txManager TransactionManager,
	transactionRepo TransactionRepository,
	ruleRepo RuleRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
) *RuleApplyUseCase {
	return &RuleApplyUseCase{
		txManager:       txManager,
		transactionRepo: transactionRepo,
		ruleRepo:        ruleRepo,
		outboxRepo:      outboxRepo,
		auditRepo:       auditRepo,
		idGen:           idGen,
		retrier:         retrier,
		logger:          logger,
	}
}

// ApplyRuleInput represents input for a retroactive rule application.
// TransactionIDs, when supplied, restricts the operation to that id set (a
// caller previews, deselects some matches, then commits the remainder).
type ApplyRuleInput struct {
	RuleID         string
	TransactionIDs []string
	Preview        bool
}

// RuleMatchPreview carries the key fields of one matching transaction.
type RuleMatchPreview struct {
	ID              string
	CounterpartName string
	Purpose         string
	AmountCents     int64
	BookingDate     time.Time
	BookingText     string
}

// ApplyRuleResult represents the outcome of a preview or commit.
type ApplyRuleResult struct {
	Preview bool
	Matches []RuleMatchPreview
	Total   int
	Applied int
}

// Apply runs the rule over the organization's unmatched transactions.
// Candidates are fetched in pages until the unmatched set is exhausted, so
// large backlogs are evaluated in full. Preview mode mutates nothing, not
// even rule stats. Commit mode applies one update payload to all matched ids
// and advances the rule's stats atomically with them. Re-applying a rule is
// idempotent: transactions it already classified have left the unmatched
// state and are no longer candidates.
func (uc *RuleApplyUseCase) Apply(ctx context.Context, caller *domain.User, input ApplyRuleInput) (*ApplyRuleResult, error) {
	if caller == nil || caller.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	if caller.OrganizationID == "" {
		return nil, domain.ErrNoOrganization
	}

	if !input.Preview && !caller.Role.CanMatch() {
		return nil, domain.ErrInsufficientRole
	}

	rule, err := uc.ruleRepo.GetByOrganization(ctx, caller.OrganizationID, input.RuleID)
	if err != nil {
		return nil, err
	}

	var candidates []*domain.Transaction
	for offset := 0; ; offset += CandidateFetchLimit {
		page, err := uc.transactionRepo.ListUnmatched(ctx, caller.OrganizationID, CandidateFetchLimit, offset)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, page...)
		if len(page) < CandidateFetchLimit {
			break
		}
	}

	matching := domain.EvaluateRule(rule, candidates)

	if len(input.TransactionIDs) > 0 {
		matching = intersectByID(matching, input.TransactionIDs)
	}

	if input.Preview {
		uc.audit(ctx, caller, domain.AuditActionRulePreview, rule.ID, len(matching), nil)

		return &ApplyRuleResult{
			Preview: true,
			Matches: previews(matching),
			Total:   len(matching),
		}, nil
	}

	if len(matching) == 0 {
		return &ApplyRuleResult{Applied: 0}, nil
	}

	now := time.Now().UTC()
	update := rule.Action.MatchUpdate(caller.ID, now)
	ids := transactionIDs(matching)

	var applied int64

	err = uc.retrier.Retry(ctx, func() error {
		applied = 0

		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		applied, err = uc.transactionRepo.ApplyMatchTx(ctx, tx, ids, update)
		if err != nil {
			return err
		}

		if err := uc.ruleRepo.IncrementStats(ctx, tx, rule.ID, applied, now); err != nil {
			return err
		}

		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   rule.ID,
			AggregateType: domain.AggregateTypeRule,
			EventType:     domain.EventTypeRuleApplied,
			Payload: domain.MarshalState(domain.RuleAppliedEvent{
				RuleID:         rule.ID,
				OrganizationID: caller.OrganizationID,
				Applied:        int(applied),
				AppliedBy:      caller.ID,
			}),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		uc.audit(ctx, caller, domain.AuditActionRuleApply, rule.ID, 0, err)

		return nil, err
	}

	uc.audit(ctx, caller, domain.AuditActionRuleApply, rule.ID, int(applied), nil)

	return &ApplyRuleResult{Applied: int(applied)}, nil
}

func (uc *RuleApplyUseCase) audit(ctx context.Context, caller *domain.User, action domain.AuditAction, ruleID string, count int, opErr error) {
	log := &domain.AuditLog{
		UserID:         caller.ID,
		OrganizationID: caller.OrganizationID,
		Action:         string(action),
		ResourceType:   domain.AuditResourceRule,
		ResourceID:     ruleID,
		AfterState:     domain.JSON{"count": count},
		Status:         string(domain.AuditStatusSuccess),
		CreatedAt:      time.Now().UTC(),
	}
	if opErr != nil {
		log.Status = string(domain.AuditStatusError)
		log.ErrorMessage = opErr.Error()
	}

	if err := uc.auditRepo.Create(ctx, log); err != nil {
		uc.logger.Error().Err(err).Msg("failed to write audit log")
	}
}

// intersectByID keeps the matching transactions whose id is in the explicit
// list, preserving the matching order.
func intersectByID(matching []*domain.Transaction, ids []string) []*domain.Transaction {
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	kept := make([]*domain.Transaction, 0, len(matching))
	for _, t := range matching {
		if allowed[t.ID] {
			kept = append(kept, t)
		}
	}

	return kept
}

func previews(transactions []*domain.Transaction) []RuleMatchPreview {
	result := make([]RuleMatchPreview, len(transactions))
	for i, t := range transactions {
		result[i] = RuleMatchPreview{
			ID:              t.ID,
			CounterpartName: t.CounterpartName,
			Purpose:         t.Purpose,
			AmountCents:     t.AmountCents,
			BookingDate:     t.BookingDate,
			BookingText:     t.BookingText,
		}
	}

	return result
}

func transactionIDs(transactions []*domain.Transaction) []string {
	ids := make([]string, len(transactions))
	for i, t := range transactions {
		ids[i] = t.ID
	}

	return ids
}
