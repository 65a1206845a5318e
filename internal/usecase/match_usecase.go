package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/immoflow/reconcile/internal/domain"
)

// MatchUseCase classifies explicitly-identified transactions to a
// tenant/lease/building/category, optionally deriving a reusable rule from
// the match.
type MatchUseCase struct {
	txManager       TransactionManager
	transactionRepo TransactionRepository
	ruleRepo        RuleRepository
	outboxRepo      OutboxRepository
	auditRepo       AuditRepository
	idGen           IDGenerator
	retrier         Retrier
	logger          zerolog.Logger
}

// NewMatchUseCase creates a new MatchUseCase.
func NewMatchUseCase(
	txManager TransactionManager,
	transactionRepo TransactionRepository,
	ruleRepo RuleRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
) *MatchUseCase {
	return &MatchUseCase{
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

// ManualMatchInput represents input for a manual or bulk match. Nil pointer
// fields are left untouched on the matched transactions.
type ManualMatchInput struct {
	TransactionIDs  []string
	TenantID        *string
	LeaseID         *string
	TransactionType *string
	BuildingID      *string
	CreateRule      bool
	RuleConditions  []domain.Condition
}

// BatchOutcome reports the result of one id batch. A bulk match is
// best-effort across batches: batches before a failing one stay committed.
type BatchOutcome struct {
	Index     int
	Requested int
	Updated   int
	Err       error
}

// ManualMatchResult represents the outcome of a manual/bulk match.
type ManualMatchResult struct {
	Updated int
	Batches []BatchOutcome
	Rule    *domain.Rule
}

// ManualMatch classifies the supplied transactions for the caller's
// organization. Ids not owned by the organization are silently dropped
// rather than failing the request; an empty resolved set yields a zero-count
// success. Processing happens in fixed-size sequential batches; each batch
// commits its update together with a transactions.matched outbox event in
// one database transaction.
func (uc *MatchUseCase) ManualMatch(ctx context.Context, caller *domain.User, input ManualMatchInput) (*ManualMatchResult, error) {
	if caller == nil || caller.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	if caller.OrganizationID == "" {
		return nil, domain.ErrNoOrganization
	}

	if !caller.Role.CanMatch() {
		return nil, domain.ErrInsufficientRole
	}

	if err := domain.ValidateTransactionIDs(input.TransactionIDs); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	update := domain.ManualMatchUpdate(caller.ID, now, input.TenantID, input.LeaseID, input.TransactionType, input.BuildingID)

	auditAction := domain.AuditActionMatchBulk
	if len(input.TransactionIDs) == 1 {
		auditAction = domain.AuditActionMatchManual
	}

	result := &ManualMatchResult{}

	for index, batch := range batchIDs(input.TransactionIDs, MatchBatchSize) {
		outcome := BatchOutcome{Index: index, Requested: len(batch)}

		// Re-verify ownership per batch; unowned ids are filtered, not
		// reported.
		owned, err := uc.transactionRepo.FilterOwned(ctx, caller.OrganizationID, batch)
		if err != nil {
			outcome.Err = err
			result.Batches = append(result.Batches, outcome)
			uc.audit(ctx, caller, auditAction, domain.AuditStatusError, result.Updated, err)

			return result, err
		}

		if len(owned) == 0 {
			result.Batches = append(result.Batches, outcome)
			continue
		}

		var updated int64

		err = uc.retrier.Retry(ctx, func() error {
			updated = 0

			tx, err := uc.txManager.Begin(ctx)
			if err != nil {
				return err
			}
			defer tx.Rollback(ctx)

			updated, err = uc.transactionRepo.ApplyMatchTx(ctx, tx, owned, update)
			if err != nil {
				return err
			}

			if updated > 0 {
				event := uc.matchedEvent(caller, input, owned, now)
				if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
					return err
				}
			}

			return tx.Commit(ctx)
		})
		if err != nil {
			outcome.Err = err
			result.Batches = append(result.Batches, outcome)
			uc.audit(ctx, caller, auditAction, domain.AuditStatusError, result.Updated, err)

			return result, err
		}

		outcome.Updated = int(updated)
		result.Updated += int(updated)
		result.Batches = append(result.Batches, outcome)
	}

	if input.CreateRule && len(input.RuleConditions) > 0 {
		rule, err := uc.deriveRule(ctx, caller, input, result.Updated, now)
		if err != nil {
			return result, err
		}

		result.Rule = rule
	}

	uc.audit(ctx, caller, auditAction, domain.AuditStatusSuccess, result.Updated, nil)

	return result, nil
}

// matchedEvent builds the outbox event for one committed batch.
func (uc *MatchUseCase) matchedEvent(caller *domain.User, input ManualMatchInput, ids []string, now time.Time) *domain.OutboxEvent {
	return &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   ids[0],
		AggregateType: domain.AggregateTypeTransaction,
		EventType:     domain.EventTypeTransactionsMatched,
		Payload: domain.MarshalState(domain.TransactionsMatchedEvent{
			TransactionIDs:  ids,
			OrganizationID:  caller.OrganizationID,
			MatchedBy:       caller.ID,
			MatchStatus:     string(domain.MatchStatusManual),
			TenantID:        stringValue(input.TenantID),
			TransactionType: stringValue(input.TransactionType),
		}),
		CreatedAt: now,
	}
}

// deriveRule persists a new rule seeded with the stats of the match that
// created it. A match that named neither a tenant nor a category cannot be
// turned into a rule; that is not an error.
func (uc *MatchUseCase) deriveRule(ctx context.Context, caller *domain.User, input ManualMatchInput, updated int, now time.Time) (*domain.Rule, error) {
	if err := domain.ValidateConditions(input.RuleConditions); err != nil {
		return nil, err
	}

	action, err := domain.InferAction(
		stringValue(input.TenantID),
		stringValue(input.LeaseID),
		stringValue(input.TransactionType),
		stringValue(input.BuildingID),
	)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyAction) {
			uc.logger.Warn().
				Str("user_id", caller.ID).
				Msg("rule derivation skipped: match carries no action data")

			return nil, nil
		}

		return nil, err
	}

	lastMatchAt := now
	rule := &domain.Rule{
		ID:             uc.idGen.Generate(),
		OrganizationID: caller.OrganizationID,
		Name:           domain.DeriveRuleName(input.RuleConditions),
		Conditions:     input.RuleConditions,
		Action:         action,
		MatchCount:     int64(updated),
		LastMatchAt:    &lastMatchAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// audit records the operation best-effort; a failing audit write never fails
// the match itself.
func (uc *MatchUseCase) audit(ctx context.Context, caller *domain.User, action domain.AuditAction, status domain.AuditStatus, updated int, opErr error) {
	log := &domain.AuditLog{
		UserID:         caller.ID,
		OrganizationID: caller.OrganizationID,
		Action:         string(action),
		ResourceType:   domain.AuditResourceTransaction,
		AfterState:     domain.JSON{"updated": updated},
		Status:         string(status),
		CreatedAt:      time.Now().UTC(),
	}
	if opErr != nil {
		log.ErrorMessage = opErr.Error()
	}

	if err := uc.auditRepo.Create(ctx, log); err != nil {
		uc.logger.Error().Err(err).Msg("failed to write audit log")
	}
}

// batchIDs splits ids into fixed-size batches, preserving order.
func batchIDs(ids []string, size int) [][]string {
	if size <= 0 {
		return [][]string{ids}
	}

	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}

		batches = append(batches, ids[start:end])
	}

	return batches
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
