// Package commission holds the pure commission math: fixed and tiered
// amount calculation plus rule resolution. Nothing here touches storage.
package commission

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vendaflow/crm-api/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Fixed computes a flat-percentage commission: base * percentage / 100.
// Intermediate math is decimal so currency values survive untruncated;
// rounding to cents happens at persistence.
func Fixed(base, percentage float64) float64 {
	amount := decimal.NewFromFloat(base).
		Mul(decimal.NewFromFloat(percentage)).
		Div(hundred)
	f, _ := amount.Float64()
	return f
}

// Tiered computes a progressive commission over the tier schedule, tax
// bracket style: each tier's rate applies only to the slice of the base that
// falls inside the tier. Returns the total amount and the effective blended
// percentage (amount / base * 100, 0 for a zero base). The blended rate is
// what gets persisted on the commission row.
//
// Tiers are assumed well-formed (non-overlapping, ascending); that is
// enforced when rules are written, not here.
func Tiered(base float64, tiers []domain.CommissionTier) (amount, effectivePercent float64) {
	if base <= 0 || len(tiers) == 0 {
		return 0, 0
	}

	sorted := make([]domain.CommissionTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinValue < sorted[j].MinValue
	})

	baseDec := decimal.NewFromFloat(base)
	remaining := baseDec
	total := decimal.Zero

	for _, tier := range sorted {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		min := decimal.NewFromFloat(tier.MinValue)
		slice := remaining
		if tier.MaxValue != nil {
			width := decimal.NewFromFloat(*tier.MaxValue).Sub(min)
			if width.LessThanOrEqual(decimal.Zero) {
				continue
			}
			if slice.GreaterThan(width) {
				slice = width
			}
		}

		total = total.Add(slice.Mul(decimal.NewFromFloat(tier.Percentage)).Div(hundred))
		remaining = remaining.Sub(slice)
	}

	amount, _ = total.Float64()
	effectivePercent, _ = total.Mul(hundred).Div(baseDec).Float64()
	return amount, effectivePercent
}

// RoundCurrency rounds an amount to cents, half up. Applied once, when a
// computed value is persisted or displayed.
func RoundCurrency(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
