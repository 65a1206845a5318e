package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immoflow/reconcile/internal/domain"
	"github.com/immoflow/reconcile/internal/usecase"
)

func TestTransactionFromDomain(t *testing.T) {
	now := time.Now()
	matched := now.Add(-time.Hour)
	tx := &domain.Transaction{
		ID:              "tx-1",
		AccountID:       "acc-1",
		CounterpartName: "Stadtwerke Berlin",
		CounterpartIBAN: "DE02120300000000202051",
		Purpose:         "Abschlag Strom",
		AmountCents:     -8550,
		Currency:        "EUR",
		BookingDate:     now,
		MatchStatus:     domain.MatchStatusManual,
		MatchConfidence: 1.0,
		MatchedAt:       &matched,
		MatchedBy:       "user-1",
		TransactionType: "utilities",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	resp := TransactionFromDomain(tx)

	assert.Equal(t, "tx-1", resp.ID)
	assert.Equal(t, int64(-8550), resp.AmountCents)
	assert.True(t, decimal.RequireFromString("-85.50").Equal(resp.Amount))
	assert.Equal(t, "manual", resp.MatchStatus)
	assert.Equal(t, 1.0, resp.MatchConfidence)
	assert.Equal(t, &matched, resp.MatchedAt)
	assert.Equal(t, "utilities", resp.TransactionType)
}

func TestManualMatchFromResult_WithoutRule(t *testing.T) {
	result := &usecase.ManualMatchResult{
		Updated: 3,
		Batches: []usecase.BatchOutcome{
			{Index: 0, Requested: 3, Updated: 3},
		},
	}

	resp := ManualMatchFromResult(result)

	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Updated)
	assert.Nil(t, resp.Rule)

	// The rule key must be present even when no rule was created.
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"rule":null`)
}

func TestManualMatchFromResult_WithRuleAndBatchError(t *testing.T) {
	now := time.Now()
	result := &usecase.ManualMatchResult{
		Updated: 100,
		Batches: []usecase.BatchOutcome{
			{Index: 0, Requested: 100, Updated: 100},
			{Index: 1, Requested: 50, Updated: 0, Err: errors.New("connection reset")},
		},
		Rule: &domain.Rule{
			ID:        "rule-1",
			Name:      "auto from match",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	resp := ManualMatchFromResult(result)

	require.NotNil(t, resp.Rule)
	assert.Equal(t, "rule-1", resp.Rule.ID)
	require.Len(t, resp.Batches, 2)
	assert.Empty(t, resp.Batches[0].Error)
	assert.Equal(t, "connection reset", resp.Batches[1].Error)
}

func TestApplyRuleFromResult_Preview(t *testing.T) {
	now := time.Now()
	result := &usecase.ApplyRuleResult{
		Preview: true,
		Total:   1,
		Matches: []usecase.RuleMatchPreview{
			{
				ID:              "tx-1",
				CounterpartName: "Stadtwerke Berlin",
				Purpose:         "Abschlag Strom",
				AmountCents:     -8550,
				BookingDate:     now,
			},
		},
	}

	resp := ApplyRuleFromResult(result)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Total)
	assert.Equal(t, 1, *resp.Total)
	assert.Nil(t, resp.Applied)
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "tx-1", resp.Matches[0].ID)
	assert.Equal(t, int64(-8550), resp.Matches[0].AmountCents)
}

func TestApplyRuleFromResult_Commit(t *testing.T) {
	result := &usecase.ApplyRuleResult{Applied: 7}

	resp := ApplyRuleFromResult(result)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Applied)
	assert.Equal(t, 7, *resp.Applied)
	assert.Nil(t, resp.Total)
	assert.Empty(t, resp.Matches)
}

func TestUserFromDomain_OmitsPassword(t *testing.T) {
	user := &domain.User{
		ID:             "user-1",
		Email:          "ops@immoflow.de",
		Name:           "Ops",
		Role:           domain.RoleOperator,
		OrganizationID: "org-1",
		HashedPassword: "$2a$10$secret",
	}

	raw, err := json.Marshal(UserFromDomain(user))
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "password")
}
