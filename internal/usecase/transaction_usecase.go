package usecase

import (
	"context"

	"github.com/immoflow/reconcile/internal/domain"
)

// TransactionUseCase handles read access to bank transactions.
type TransactionUseCase struct {
	transactionRepo TransactionRepository
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(transactionRepo TransactionRepository) *TransactionUseCase {
	return &TransactionUseCase{transactionRepo: transactionRepo}
}

// ListUnmatchedInput represents input for listing unmatched transactions.
type ListUnmatchedInput struct {
	Limit  int
	Offset int
}

// ListUnmatched lists the organization's unmatched transactions, newest
// booking date first.
func (uc *TransactionUseCase) ListUnmatched(ctx context.Context, caller *domain.User, input ListUnmatchedInput) ([]*domain.Transaction, error) {
	if caller == nil || caller.OrganizationID == "" {
		return nil, domain.ErrUnauthorized
	}

	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.transactionRepo.ListUnmatched(ctx, caller.OrganizationID, limit, offset)
}

// GetTransaction retrieves one transaction, scoped to the caller's
// organization.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, caller *domain.User, id string) (*domain.Transaction, error) {
	if caller == nil || caller.OrganizationID == "" {
		return nil, domain.ErrUnauthorized
	}

	return uc.transactionRepo.GetByID(ctx, caller.OrganizationID, id)
}
