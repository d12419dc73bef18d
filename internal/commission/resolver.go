package commission

import (
	"sort"

	"github.com/vendaflow/crm-api/internal/domain"
)

// Resolve picks the applicable rule for a commission type, recipient role,
// and deal type. Nil rule fields act as wildcards. Selection is
// deterministic: lowest Priority wins, then the more specific rule (explicit
// deal type and role beat wildcards), then the oldest rule. Inactive rules
// and rules of other types never match.
//
// Returns nil when no rule applies; the caller treats that as "no commission
// configured", not an error.
func Resolve(rules []domain.CommissionRule, commissionType domain.CommissionType, role domain.UserRoleType, dealType domain.DealType) *domain.CommissionRule {
	matches := make([]domain.CommissionRule, 0, len(rules))
	for _, r := range rules {
		if !r.IsActive || r.CommissionType != commissionType {
			continue
		}
		if r.Matches(role, dealType) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority < matches[j].Priority
		}
		if matches[i].Specificity() != matches[j].Specificity() {
			return matches[i].Specificity() > matches[j].Specificity()
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})

	return &matches[0]
}

// Compute applies a rule to a base value and returns the amount and the
// effective percentage to persist. Fixed rules report their configured rate;
// tiered rules report the blended rate.
func Compute(rule *domain.CommissionRule, base float64) (amount, effectivePercent float64) {
	if rule == nil || base <= 0 {
		return 0, 0
	}
	if rule.IsTiered {
		return Tiered(base, rule.Tiers)
	}
	return Fixed(base, rule.Percentage), rule.Percentage
}
