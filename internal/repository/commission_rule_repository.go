package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendaflow/crm-api/internal/domain"
)

type CommissionRuleRepository struct {
	db *gorm.DB
}

func NewCommissionRuleRepository(db *gorm.DB) *CommissionRuleRepository {
	return &CommissionRuleRepository{db: db}
}

func (r *CommissionRuleRepository) Create(ctx context.Context, rule *domain.CommissionRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(rule).Error; err != nil {
			return err
		}
		for i := range rule.Tiers {
			rule.Tiers[i].RuleID = rule.ID
			if err := tx.Create(&rule.Tiers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CommissionRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommissionRule, error) {
	var rule domain.CommissionRule
	err := r.db.WithContext(ctx).Preload("Tiers").Where("id = ?", id).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *CommissionRuleRepository) Update(ctx context.Context, rule *domain.CommissionRule) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(rule).Error
}

// ReplaceTiers swaps out the tier set of a rule atomically
func (r *CommissionRuleRepository) ReplaceTiers(ctx context.Context, ruleID uuid.UUID, tiers []domain.CommissionTier) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", ruleID).Delete(&domain.CommissionTier{}).Error; err != nil {
			return err
		}
		for i := range tiers {
			tiers[i].RuleID = ruleID
			if err := tx.Create(&tiers[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CommissionRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).Delete(&domain.CommissionTier{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.CommissionRule{}, "id = ?", id).Error
	})
}

func (r *CommissionRuleRepository) List(ctx context.Context, includeInactive bool) ([]domain.CommissionRule, error) {
	var rules []domain.CommissionRule
	query := r.db.WithContext(ctx).Preload("Tiers")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	err := query.Order("priority ASC, created_at ASC").Find(&rules).Error
	return rules, err
}

// ListActiveByType returns active rules for a commission type with tiers
// preloaded, ordered the way the resolver expects as its input.
func (r *CommissionRuleRepository) ListActiveByType(ctx context.Context, commissionType domain.CommissionType) ([]domain.CommissionRule, error) {
	var rules []domain.CommissionRule
	err := r.db.WithContext(ctx).
		Preload("Tiers").
		Where("commission_type = ?", commissionType).
		Where("is_active = ?", true).
		Order("priority ASC, created_at ASC").
		Find(&rules).Error
	return rules, err
}
