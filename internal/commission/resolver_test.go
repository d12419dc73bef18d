package commission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendaflow/crm-api/internal/domain"
)

func rolePtr(r domain.UserRoleType) *domain.UserRoleType { return &r }
func dealTypePtr(d domain.DealType) *domain.DealType     { return &d }

func makeRule(name string, priority int, role *domain.UserRoleType, dealType *domain.DealType, createdAt time.Time) domain.CommissionRule {
	rule := domain.CommissionRule{
		Name:           name,
		CommissionType: domain.CommissionTypeClosing,
		Role:           role,
		DealType:       dealType,
		Percentage:     5,
		Priority:       priority,
		IsActive:       true,
	}
	rule.CreatedAt = createdAt
	return rule
}

func TestResolve(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no rules", func(t *testing.T) {
		assert.Nil(t, Resolve(nil, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject))
	})

	t.Run("inactive rules never match", func(t *testing.T) {
		rule := makeRule("inactive", 1, nil, nil, base)
		rule.IsActive = false
		assert.Nil(t, Resolve([]domain.CommissionRule{rule}, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject))
	})

	t.Run("other commission types never match", func(t *testing.T) {
		rule := makeRule("delivery", 1, nil, nil, base)
		rule.CommissionType = domain.CommissionTypeDelivery
		assert.Nil(t, Resolve([]domain.CommissionRule{rule}, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject))
	})

	t.Run("lowest priority wins", func(t *testing.T) {
		rules := []domain.CommissionRule{
			makeRule("low", 200, nil, nil, base),
			makeRule("high", 10, nil, nil, base),
		}
		got := Resolve(rules, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject)
		require.NotNil(t, got)
		assert.Equal(t, "high", got.Name)
	})

	t.Run("specific beats wildcard at equal priority", func(t *testing.T) {
		rules := []domain.CommissionRule{
			makeRule("wildcard", 100, nil, nil, base),
			makeRule("specific", 100, rolePtr(domain.RoleCloser), dealTypePtr(domain.DealTypeRetainer), base),
		}
		got := Resolve(rules, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeRetainer)
		require.NotNil(t, got)
		assert.Equal(t, "specific", got.Name)
	})

	t.Run("oldest rule breaks full ties", func(t *testing.T) {
		rules := []domain.CommissionRule{
			makeRule("newer", 100, nil, nil, base.Add(time.Hour)),
			makeRule("older", 100, nil, nil, base),
		}
		got := Resolve(rules, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject)
		require.NotNil(t, got)
		assert.Equal(t, "older", got.Name)
	})

	t.Run("role filter excludes non-matching rules", func(t *testing.T) {
		rules := []domain.CommissionRule{
			makeRule("sdr-only", 1, rolePtr(domain.RoleSdr), nil, base),
			makeRule("fallback", 100, nil, nil, base),
		}
		got := Resolve(rules, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject)
		require.NotNil(t, got)
		assert.Equal(t, "fallback", got.Name)
	})

	t.Run("deal type filter excludes non-matching rules", func(t *testing.T) {
		rules := []domain.CommissionRule{
			makeRule("retainer-only", 1, nil, dealTypePtr(domain.DealTypeRetainer), base),
		}
		assert.Nil(t, Resolve(rules, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject))
	})

	t.Run("resolution is deterministic across input order", func(t *testing.T) {
		rules := []domain.CommissionRule{
			makeRule("a", 100, rolePtr(domain.RoleCloser), nil, base),
			makeRule("b", 100, nil, dealTypePtr(domain.DealTypeProject), base.Add(time.Minute)),
		}
		first := Resolve(rules, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject)
		reversed := []domain.CommissionRule{rules[1], rules[0]}
		second := Resolve(reversed, domain.CommissionTypeClosing, domain.RoleCloser, domain.DealTypeProject)
		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, first.Name, second.Name)
	})
}
