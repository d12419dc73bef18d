package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendaflow/crm-api/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestFixed(t *testing.T) {
	t.Run("computes flat percentage", func(t *testing.T) {
		assert.InDelta(t, 5000.0, Fixed(100000, 5), 0.001)
	})

	t.Run("fractional percentage", func(t *testing.T) {
		assert.InDelta(t, 1250.0, Fixed(50000, 2.5), 0.001)
	})

	t.Run("zero base yields zero", func(t *testing.T) {
		assert.Zero(t, Fixed(0, 10))
	})

	t.Run("survives float-hostile values", func(t *testing.T) {
		// 0.1 + 0.2 style inputs must not accumulate binary float error
		assert.InDelta(t, 0.03, Fixed(0.3, 10), 1e-9)
	})
}

func TestTiered(t *testing.T) {
	tiers := []domain.CommissionTier{
		{MinValue: 0, MaxValue: floatPtr(50000), Percentage: 2},
		{MinValue: 50000, MaxValue: floatPtr(100000), Percentage: 3},
		{MinValue: 100000, MaxValue: nil, Percentage: 5},
	}

	t.Run("base inside first tier", func(t *testing.T) {
		amount, pct := Tiered(40000, tiers)
		assert.InDelta(t, 800.0, amount, 0.001)
		assert.InDelta(t, 2.0, pct, 0.001)
	})

	t.Run("base spans two tiers", func(t *testing.T) {
		// 50000 * 2% + 30000 * 3% = 1000 + 900
		amount, pct := Tiered(80000, tiers)
		assert.InDelta(t, 1900.0, amount, 0.001)
		assert.InDelta(t, 2.375, pct, 0.001)
	})

	t.Run("base reaches unbounded tier", func(t *testing.T) {
		// 50000 * 2% + 50000 * 3% + 100000 * 5% = 1000 + 1500 + 5000
		amount, pct := Tiered(200000, tiers)
		assert.InDelta(t, 7500.0, amount, 0.001)
		assert.InDelta(t, 3.75, pct, 0.001)
	})

	t.Run("base exactly on tier boundary", func(t *testing.T) {
		amount, _ := Tiered(50000, tiers)
		assert.InDelta(t, 1000.0, amount, 0.001)
	})

	t.Run("zero base", func(t *testing.T) {
		amount, pct := Tiered(0, tiers)
		assert.Zero(t, amount)
		assert.Zero(t, pct)
	})

	t.Run("no tiers", func(t *testing.T) {
		amount, pct := Tiered(100000, nil)
		assert.Zero(t, amount)
		assert.Zero(t, pct)
	})

	t.Run("unsorted tiers are sorted before applying", func(t *testing.T) {
		shuffled := []domain.CommissionTier{tiers[2], tiers[0], tiers[1]}
		amount, _ := Tiered(80000, shuffled)
		assert.InDelta(t, 1900.0, amount, 0.001)
	})
}

func TestCompute(t *testing.T) {
	t.Run("fixed rule reports configured rate", func(t *testing.T) {
		rule := &domain.CommissionRule{Percentage: 4}
		amount, pct := Compute(rule, 10000)
		assert.InDelta(t, 400.0, amount, 0.001)
		assert.InDelta(t, 4.0, pct, 0.001)
	})

	t.Run("tiered rule reports blended rate", func(t *testing.T) {
		rule := &domain.CommissionRule{
			IsTiered: true,
			Tiers: []domain.CommissionTier{
				{MinValue: 0, MaxValue: floatPtr(10000), Percentage: 1},
				{MinValue: 10000, Percentage: 2},
			},
		}
		amount, pct := Compute(rule, 20000)
		assert.InDelta(t, 300.0, amount, 0.001)
		assert.InDelta(t, 1.5, pct, 0.001)
	})

	t.Run("nil rule", func(t *testing.T) {
		amount, pct := Compute(nil, 10000)
		assert.Zero(t, amount)
		assert.Zero(t, pct)
	})
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, 10.13, RoundCurrency(10.125))
	assert.Equal(t, 10.12, RoundCurrency(10.124))
	assert.Equal(t, -3.34, RoundCurrency(-3.335))
}
