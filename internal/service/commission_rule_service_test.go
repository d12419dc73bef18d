package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendaflow/crm-api/internal/domain"
)

func TestCommissionRuleCreate(t *testing.T) {
	t.Run("fixed rule gets defaults", func(t *testing.T) {
		env := newTestEnv(t)

		dto, err := env.rules.Create(context.Background(), &domain.CreateCommissionRuleRequest{
			Name:           "Standard Closing",
			CommissionType: domain.CommissionTypeClosing,
			Percentage:     5,
		})
		require.NoError(t, err)
		assert.Equal(t, 100, dto.Priority)
		assert.True(t, dto.IsActive)
		assert.False(t, dto.IsTiered)
	})

	t.Run("tiered rule persists its schedule", func(t *testing.T) {
		env := newTestEnv(t)

		dto, err := env.rules.Create(context.Background(), &domain.CreateCommissionRuleRequest{
			Name:           "Progressive Closing",
			CommissionType: domain.CommissionTypeClosing,
			IsTiered:       true,
			Tiers: []domain.CommissionTierInput{
				{MinValue: 0, MaxValue: floatPtr(50000), Percentage: 2},
				{MinValue: 50000, Percentage: 4},
			},
		})
		require.NoError(t, err)
		require.Len(t, dto.Tiers, 2)

		reloaded, err := env.rules.GetByID(context.Background(), dto.ID)
		require.NoError(t, err)
		assert.Len(t, reloaded.Tiers, 2)
	})

	t.Run("tiered rule without tiers is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.rules.Create(context.Background(), &domain.CreateCommissionRuleRequest{
			Name:           "Empty Schedule",
			CommissionType: domain.CommissionTypeClosing,
			IsTiered:       true,
		})
		assert.ErrorIs(t, err, ErrInvalidTierSchedule)
	})
}

func TestValidateTierSchedule(t *testing.T) {
	valid := []domain.CommissionTier{
		{MinValue: 0, MaxValue: floatPtr(50000), Percentage: 2},
		{MinValue: 50000, MaxValue: floatPtr(100000), Percentage: 3},
		{MinValue: 100000, Percentage: 5},
	}

	t.Run("contiguous ascending schedule passes", func(t *testing.T) {
		assert.NoError(t, validateTierSchedule(valid))
	})

	t.Run("bounded last tier passes", func(t *testing.T) {
		tiers := []domain.CommissionTier{
			{MinValue: 0, MaxValue: floatPtr(50000), Percentage: 2},
		}
		assert.NoError(t, validateTierSchedule(tiers))
	})

	t.Run("empty schedule fails", func(t *testing.T) {
		assert.ErrorIs(t, validateTierSchedule(nil), ErrInvalidTierSchedule)
	})

	t.Run("first tier must start at zero", func(t *testing.T) {
		tiers := []domain.CommissionTier{
			{MinValue: 1000, MaxValue: floatPtr(50000), Percentage: 2},
		}
		assert.ErrorIs(t, validateTierSchedule(tiers), ErrInvalidTierSchedule)
	})

	t.Run("gaps between tiers fail", func(t *testing.T) {
		tiers := []domain.CommissionTier{
			{MinValue: 0, MaxValue: floatPtr(50000), Percentage: 2},
			{MinValue: 60000, Percentage: 4},
		}
		assert.ErrorIs(t, validateTierSchedule(tiers), ErrInvalidTierSchedule)
	})

	t.Run("overlapping tiers fail", func(t *testing.T) {
		tiers := []domain.CommissionTier{
			{MinValue: 0, MaxValue: floatPtr(50000), Percentage: 2},
			{MinValue: 40000, Percentage: 4},
		}
		assert.ErrorIs(t, validateTierSchedule(tiers), ErrInvalidTierSchedule)
	})

	t.Run("inverted bounds fail", func(t *testing.T) {
		tiers := []domain.CommissionTier{
			{MinValue: 0, MaxValue: floatPtr(0), Percentage: 2},
		}
		assert.ErrorIs(t, validateTierSchedule(tiers), ErrInvalidTierSchedule)
	})

	t.Run("unbounded tier in the middle fails", func(t *testing.T) {
		tiers := []domain.CommissionTier{
			{MinValue: 0, Percentage: 2},
			{MinValue: 50000, MaxValue: floatPtr(100000), Percentage: 4},
		}
		assert.ErrorIs(t, validateTierSchedule(tiers), ErrInvalidTierSchedule)
	})
}

func TestCommissionRuleUpdate(t *testing.T) {
	t.Run("deactivating a rule hides it from resolution", func(t *testing.T) {
		env := newTestEnv(t)
		rule := env.createRule(t, nil)

		dto, err := env.rules.Update(context.Background(), rule.ID, &domain.UpdateCommissionRuleRequest{
			Name:       rule.Name,
			Percentage: rule.Percentage,
			IsActive:   false,
		})
		require.NoError(t, err)
		assert.False(t, dto.IsActive)

		active, err := env.ruleRepo.ListActiveByType(context.Background(), domain.CommissionTypeClosing)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("replacing tiers validates the new schedule", func(t *testing.T) {
		env := newTestEnv(t)
		dto, err := env.rules.Create(context.Background(), &domain.CreateCommissionRuleRequest{
			Name:           "Progressive",
			CommissionType: domain.CommissionTypeClosing,
			IsTiered:       true,
			Tiers: []domain.CommissionTierInput{
				{MinValue: 0, Percentage: 2},
			},
		})
		require.NoError(t, err)

		_, err = env.rules.Update(context.Background(), dto.ID, &domain.UpdateCommissionRuleRequest{
			Name:     "Progressive",
			IsActive: true,
			Tiers: []domain.CommissionTierInput{
				{MinValue: 5000, Percentage: 2},
			},
		})
		assert.ErrorIs(t, err, ErrInvalidTierSchedule)

		updated, err := env.rules.Update(context.Background(), dto.ID, &domain.UpdateCommissionRuleRequest{
			Name:     "Progressive",
			IsActive: true,
			Tiers: []domain.CommissionTierInput{
				{MinValue: 0, MaxValue: floatPtr(20000), Percentage: 1},
				{MinValue: 20000, Percentage: 3},
			},
		})
		require.NoError(t, err)
		assert.Len(t, updated.Tiers, 2)
	})
}
