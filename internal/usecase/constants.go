package usecase

import "time"

const (
	// MatchBatchSize is the number of transaction ids mutated per batch in a
	// bulk manual match. Batches are the unit of atomicity, not the whole
	// request.
	MatchBatchSize = 100

	// CandidateFetchLimit is the page size used when scanning the unmatched
	// set for a retroactive rule application.
	CandidateFetchLimit = 10000

	// RuleCacheTTL is how long per-organization rule lists are cached.
	RuleCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
