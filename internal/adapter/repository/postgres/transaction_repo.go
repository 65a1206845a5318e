package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// TransactionRepository implements bank transaction persistence. All reads
// are scoped to an organization through the account ownership chain:
// bank_transactions -> bank_accounts -> bank_connections.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `
	t.id, t.account_id,
	COALESCE(t.counterpart_name, ''), COALESCE(t.counterpart_iban, ''),
	COALESCE(t.purpose, ''), COALESCE(t.booking_text, ''),
	t.amount_cents, t.currency, t.booking_date,
	t.match_status, COALESCE(t.match_confidence, 0),
	t.matched_at, COALESCE(t.matched_by, ''),
	COALESCE(t.matched_tenant_id, ''), COALESCE(t.matched_lease_id, ''),
	COALESCE(t.matched_building_id, ''), COALESCE(t.transaction_type, ''),
	t.created_at, t.updated_at`

// GetByID retrieves a transaction owned by the organization.
func (r *TransactionRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bank_transactions t
		JOIN bank_accounts a ON a.id = t.account_id
		JOIN bank_connections c ON c.id = a.connection_id
		WHERE c.organization_id = $1 AND t.id = $2
	`

	transaction, err := scanTransaction(r.pool.QueryRow(ctx, query, organizationID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}

	return transaction, err
}

// ListUnmatched retrieves the organization's unmatched transactions, newest
// booking date first.
func (r *TransactionRepository) ListUnmatched(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM bank_transactions t
		JOIN bank_accounts a ON a.id = t.account_id
		JOIN bank_connections c ON c.id = a.connection_id
		WHERE c.organization_id = $1 AND t.match_status = $2
		ORDER BY t.booking_date DESC, t.id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, organizationID, domain.MatchStatusUnmatched, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		transactions = append(transactions, transaction)
	}

	return transactions, rows.Err()
}

// FilterOwned returns the subset of ids that belong to the organization,
// preserving the input order.
func (r *TransactionRepository) FilterOwned(ctx context.Context, organizationID string, ids []string) ([]string, error) {
	query := `
		SELECT t.id
		FROM bank_transactions t
		JOIN bank_accounts a ON a.id = t.account_id
		JOIN bank_connections c ON c.id = a.connection_id
		WHERE c.organization_id = $1 AND t.id = ANY($2)
	`

	rows, err := r.pool.Query(ctx, query, organizationID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	owned := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		owned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(owned))
	for _, id := range ids {
		if owned[id] {
			kept = append(kept, id)
		}
	}

	return kept, nil
}

// ApplyMatchTx applies one update payload to the ids that are still
// unmatched, inside an existing transaction. The status guard in the WHERE
// clause makes re-applies no-ops.
func (r *TransactionRepository) ApplyMatchTx(ctx context.Context, tx usecase.Transaction, ids []string, update domain.MatchUpdate) (int64, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query, args := buildMatchUpdate(ids, update)

	tag, err := pgxTx.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// buildMatchUpdate renders the UPDATE statement. Classification columns are
// only touched when the payload carries them; nil pointers leave the stored
// value as is.
func buildMatchUpdate(ids []string, update domain.MatchUpdate) (string, []any) {
	sets := []string{
		"match_status = $1",
		"match_confidence = $2",
		"matched_at = $3",
		"matched_by = $4",
		"updated_at = $3",
	}
	args := []any{update.Status, update.Confidence, update.MatchedAt, update.MatchedBy}

	optional := []struct {
		column string
		value  *string
	}{
		{"matched_tenant_id", update.TenantID},
		{"matched_lease_id", update.LeaseID},
		{"matched_building_id", update.BuildingID},
		{"transaction_type", update.TransactionType},
	}
	for _, opt := range optional {
		if opt.value == nil {
			continue
		}

		args = append(args, *opt.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", opt.column, len(args)))
	}

	args = append(args, ids)
	query := fmt.Sprintf(`
		UPDATE bank_transactions
		SET %s
		WHERE id = ANY($%d) AND match_status = '%s'
	`, strings.Join(sets, ", "), len(args), domain.MatchStatusUnmatched)

	return query, args
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.CounterpartName,
		&t.CounterpartIBAN,
		&t.Purpose,
		&t.BookingText,
		&t.AmountCents,
		&t.Currency,
		&t.BookingDate,
		&t.MatchStatus,
		&t.MatchConfidence,
		&t.MatchedAt,
		&t.MatchedBy,
		&t.MatchedTenantID,
		&t.MatchedLeaseID,
		&t.MatchedBuildingID,
		&t.TransactionType,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
