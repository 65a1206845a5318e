package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/immoflow/reconcile/internal/domain"
)

// RuleUseCase handles rule management.
type RuleUseCase struct {
	ruleRepo  RuleRepository
	auditRepo AuditRepository
	idGen     IDGenerator
	cache     Cache
	logger    zerolog.Logger
}

// NewRuleUseCase creates a new RuleUseCase.
func NewRuleUseCase(ruleRepo RuleRepository, auditRepo AuditRepository, idGen IDGenerator, cache Cache, logger zerolog.Logger) *RuleUseCase {
	return &RuleUseCase{
		ruleRepo:  ruleRepo,
		auditRepo: auditRepo,
		idGen:     idGen,
		cache:     cache,
		logger:    logger,
	}
}

// CreateRuleInput represents input for creating a rule.
type CreateRuleInput struct {
	Name       string
	Conditions []domain.Condition
	Action     domain.RuleAction
}

// CreateRule creates a new matching rule for the caller's organization. The
// name defaults to a label derived from the condition values.
func (uc *RuleUseCase) CreateRule(ctx context.Context, caller *domain.User, input CreateRuleInput) (*domain.Rule, error) {
	if caller == nil || caller.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	if caller.OrganizationID == "" {
		return nil, domain.ErrNoOrganization
	}

	if !caller.Role.CanManageRules() {
		return nil, domain.ErrInsufficientRole
	}

	if err := domain.ValidateConditions(input.Conditions); err != nil {
		return nil, err
	}

	if err := input.Action.Validate(); err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		name = domain.DeriveRuleName(input.Conditions)
	}

	if err := domain.ValidateRuleName(name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rule := &domain.Rule{
		ID:             uc.idGen.Generate(),
		OrganizationID: caller.OrganizationID,
		Name:           name,
		Conditions:     input.Conditions,
		Action:         input.Action,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	uc.invalidateListCache(ctx, caller.OrganizationID)
	uc.auditCreate(ctx, caller, rule)

	return rule, nil
}

// auditCreate records the creation best-effort; a failing audit write never
// fails the creation itself.
func (uc *RuleUseCase) auditCreate(ctx context.Context, caller *domain.User, rule *domain.Rule) {
	log := &domain.AuditLog{
		UserID:         caller.ID,
		OrganizationID: caller.OrganizationID,
		Action:         string(domain.AuditActionRuleCreate),
		ResourceType:   domain.AuditResourceRule,
		ResourceID:     rule.ID,
		AfterState: domain.JSON{
			"name":        rule.Name,
			"action_type": string(rule.Action.Type),
		},
		Status:    string(domain.AuditStatusSuccess),
		CreatedAt: time.Now().UTC(),
	}

	if err := uc.auditRepo.Create(ctx, log); err != nil {
		uc.logger.Error().Err(err).Msg("failed to write audit log")
	}
}

// GetRule retrieves one rule, scoped to the caller's organization.
func (uc *RuleUseCase) GetRule(ctx context.Context, caller *domain.User, id string) (*domain.Rule, error) {
	if caller == nil || caller.OrganizationID == "" {
		return nil, domain.ErrUnauthorized
	}

	return uc.ruleRepo.GetByOrganization(ctx, caller.OrganizationID, id)
}

// ListRulesInput represents input for listing rules.
type ListRulesInput struct {
	Limit  int
	Offset int
}

// ListRules lists the organization's rules, newest first. The first page is
// served from cache when possible.
func (uc *RuleUseCase) ListRules(ctx context.Context, caller *domain.User, input ListRulesInput) ([]*domain.Rule, error) {
	if caller == nil || caller.OrganizationID == "" {
		return nil, domain.ErrUnauthorized
	}

	limit, offset, _ := domain.ValidatePagination(input.Limit, input.Offset)

	key := ruleListCacheKey(caller.OrganizationID)
	if offset == 0 {
		if cached, err := uc.cache.Get(ctx, key); err == nil && cached != "" {
			var rules []*domain.Rule
			if err := json.Unmarshal([]byte(cached), &rules); err == nil && len(rules) <= limit {
				return rules, nil
			}
		}
	}

	rules, err := uc.ruleRepo.ListByOrganization(ctx, caller.OrganizationID, limit, offset)
	if err != nil {
		return nil, err
	}

	if offset == 0 {
		if payload, err := json.Marshal(rules); err == nil {
			if err := uc.cache.Set(ctx, key, string(payload), RuleCacheTTL); err != nil {
				uc.logger.Warn().Err(err).Msg("failed to cache rule list")
			}
		}
	}

	return rules, nil
}

func (uc *RuleUseCase) invalidateListCache(ctx context.Context, organizationID string) {
	if err := uc.cache.Delete(ctx, ruleListCacheKey(organizationID)); err != nil {
		uc.logger.Warn().Err(err).Msg("failed to invalidate rule list cache")
	}
}

func ruleListCacheKey(organizationID string) string {
	return fmt.Sprintf("rules:%s", organizationID)
}
