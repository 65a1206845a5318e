package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

// RuleRepository implements matching rule persistence. Conditions and the
// action are stored as JSONB documents.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository creates a new rule repository.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// Create inserts a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *domain.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	action, err := json.Marshal(rule.Action)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO match_rules (
			id, organization_id, name, conditions, action,
			match_count, last_match_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		rule.ID,
		rule.OrganizationID,
		rule.Name,
		conditions,
		action,
		rule.MatchCount,
		rule.LastMatchAt,
		rule.CreatedAt,
		rule.UpdatedAt,
	)

	return err
}

// GetByOrganization retrieves a rule owned by the organization.
func (r *RuleRepository) GetByOrganization(ctx context.Context, organizationID, id string) (*domain.Rule, error) {
	query := `
		SELECT id, organization_id, name, conditions, action,
		       match_count, last_match_at, created_at, updated_at
		FROM match_rules
		WHERE organization_id = $1 AND id = $2
	`

	rule, err := scanRule(r.pool.QueryRow(ctx, query, organizationID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRuleNotFound
	}

	return rule, err
}

// ListByOrganization retrieves the organization's rules, newest first.
func (r *RuleRepository) ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Rule, error) {
	query := `
		SELECT id, organization_id, name, conditions, action,
		       match_count, last_match_at, created_at, updated_at
		FROM match_rules
		WHERE organization_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]*domain.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// IncrementStats advances a rule's match counter within a transaction.
func (r *RuleRepository) IncrementStats(ctx context.Context, tx usecase.Transaction, id string, count int64, matchedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE match_rules
		SET match_count = match_count + $2, last_match_at = $3, updated_at = $3
		WHERE id = $1
	`

	_, err := pgxTx.Exec(ctx, query, id, count, matchedAt)

	return err
}

func scanRule(row pgx.Row) (*domain.Rule, error) {
	var (
		rule       domain.Rule
		conditions []byte
		action     []byte
	)

	err := row.Scan(
		&rule.ID,
		&rule.OrganizationID,
		&rule.Name,
		&conditions,
		&action,
		&rule.MatchCount,
		&rule.LastMatchAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditions, &rule.Conditions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(action, &rule.Action); err != nil {
		return nil, err
	}

	return &rule, nil
}
