package usecase

import (
	"context"
	"time"

	"github.com/immoflow/reconcile/internal/domain"
)

// TransactionRepository defines data access for bank transactions. All
// organization-scoped methods resolve ownership through the account →
// connection → organization join chain; client-supplied organization claims
// are never trusted.
type TransactionRepository interface {
	GetByID(ctx context.Context, organizationID, id string) (*domain.Transaction, error)
	ListUnmatched(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Transaction, error)
	// FilterOwned returns the subset of ids owned by the organization,
	// preserving the input order.
	FilterOwned(ctx context.Context, organizationID string, ids []string) ([]string, error)
	// ApplyMatchTx applies one update payload to all ids in a single
	// statement within a caller-owned transaction and returns the number of
	// rows updated.
	ApplyMatchTx(ctx context.Context, tx Transaction, ids []string, update domain.MatchUpdate) (int64, error)
}

// RuleRepository defines data access for matching rules.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.Rule) error
	GetByOrganization(ctx context.Context, organizationID, id string) (*domain.Rule, error)
	ListByOrganization(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Rule, error)
	// IncrementStats advances match_count and last_match_at atomically with
	// the transactions the rule touched.
	IncrementStats(ctx context.Context, tx Transaction, id string, count int64, matchedAt time.Time) error
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries an operation on transient persistence errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
