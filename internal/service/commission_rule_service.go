package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/mapper"
	"github.com/vendaflow/crm-api/internal/repository"
)

// CommissionRuleService manages the commission rule configuration. Tier
// schedules are validated here, at write time, so the calculator can assume
// well-formed input.
type CommissionRuleService struct {
	ruleRepo     *repository.CommissionRuleRepository
	auditService *AuditLogService
	logger       *zap.Logger
}

func NewCommissionRuleService(
	ruleRepo *repository.CommissionRuleRepository,
	auditService *AuditLogService,
	logger *zap.Logger,
) *CommissionRuleService {
	return &CommissionRuleService{
		ruleRepo:     ruleRepo,
		auditService: auditService,
		logger:       logger,
	}
}

func (s *CommissionRuleService) Create(ctx context.Context, req *domain.CreateCommissionRuleRequest) (*domain.CommissionRuleDTO, error) {
	tiers := tiersFromInput(req.Tiers)
	if req.IsTiered {
		if err := validateTierSchedule(tiers); err != nil {
			return nil, err
		}
	}

	priority := req.Priority
	if priority == 0 {
		priority = 100
	}

	rule := &domain.CommissionRule{
		Name:           req.Name,
		CommissionType: req.CommissionType,
		Role:           req.Role,
		DealType:       req.DealType,
		Percentage:     req.Percentage,
		IsTiered:       req.IsTiered,
		Priority:       priority,
		IsActive:       true,
		Tiers:          tiers,
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create commission rule: %w", err)
	}

	s.audit(ctx, domain.AuditActionCreate, rule)

	dto := mapper.ToCommissionRuleDTO(rule)
	return &dto, nil
}

func (s *CommissionRuleService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommissionRuleDTO, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commission rule: %w", err)
	}
	dto := mapper.ToCommissionRuleDTO(rule)
	return &dto, nil
}

func (s *CommissionRuleService) List(ctx context.Context, includeInactive bool) ([]domain.CommissionRuleDTO, error) {
	rules, err := s.ruleRepo.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list commission rules: %w", err)
	}
	dtos := make([]domain.CommissionRuleDTO, len(rules))
	for i := range rules {
		dtos[i] = mapper.ToCommissionRuleDTO(&rules[i])
	}
	return dtos, nil
}

func (s *CommissionRuleService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCommissionRuleRequest) (*domain.CommissionRuleDTO, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commission rule: %w", err)
	}

	rule.Name = req.Name
	rule.Percentage = req.Percentage
	if req.Priority != 0 {
		rule.Priority = req.Priority
	}
	rule.IsActive = req.IsActive

	if len(req.Tiers) > 0 {
		tiers := tiersFromInput(req.Tiers)
		if rule.IsTiered {
			if err := validateTierSchedule(tiers); err != nil {
				return nil, err
			}
		}
		if err := s.ruleRepo.ReplaceTiers(ctx, rule.ID, tiers); err != nil {
			return nil, fmt.Errorf("failed to replace tiers: %w", err)
		}
		rule.Tiers = tiers
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update commission rule: %w", err)
	}

	s.audit(ctx, domain.AuditActionUpdate, rule)

	dto := mapper.ToCommissionRuleDTO(rule)
	return &dto, nil
}

func (s *CommissionRuleService) Delete(ctx context.Context, id uuid.UUID) error {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get commission rule: %w", err)
	}

	if err := s.ruleRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete commission rule: %w", err)
	}

	s.audit(ctx, domain.AuditActionDelete, rule)
	return nil
}

func (s *CommissionRuleService) audit(ctx context.Context, action domain.AuditAction, rule *domain.CommissionRule) {
	if s.auditService == nil {
		return
	}
	entry := LogEntry{
		Action:     action,
		EntityType: "commission_rule",
		EntityID:   &rule.ID,
		EntityName: rule.Name,
		NewValues:  mapper.ToCommissionRuleDTO(rule),
	}
	if err := s.auditService.Log(ctx, nil, entry); err != nil {
		s.logger.Warn("failed to write rule audit entry", zap.Error(err))
	}
}

func tiersFromInput(inputs []domain.CommissionTierInput) []domain.CommissionTier {
	tiers := make([]domain.CommissionTier, len(inputs))
	for i, in := range inputs {
		tiers[i] = domain.CommissionTier{
			MinValue:   in.MinValue,
			MaxValue:   in.MaxValue,
			Percentage: in.Percentage,
		}
	}
	return tiers
}

// validateTierSchedule checks that tiers form a contiguous, ascending,
// non-overlapping schedule starting at zero. Only the last tier may be
// unbounded.
func validateTierSchedule(tiers []domain.CommissionTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: tiered rules require at least one tier", ErrInvalidTierSchedule)
	}

	sorted := make([]domain.CommissionTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinValue < sorted[j].MinValue
	})

	if sorted[0].MinValue != 0 {
		return fmt.Errorf("%w: first tier must start at 0", ErrInvalidTierSchedule)
	}

	for i, tier := range sorted {
		last := i == len(sorted)-1
		if tier.MaxValue == nil {
			if !last {
				return fmt.Errorf("%w: only the last tier may be unbounded", ErrInvalidTierSchedule)
			}
			continue
		}
		if *tier.MaxValue <= tier.MinValue {
			return fmt.Errorf("%w: tier upper bound must exceed lower bound", ErrInvalidTierSchedule)
		}
		if !last && sorted[i+1].MinValue != *tier.MaxValue {
			return fmt.Errorf("%w: tiers must be contiguous", ErrInvalidTierSchedule)
		}
	}
	return nil
}
