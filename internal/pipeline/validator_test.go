package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vendaflow/crm-api/internal/domain"
)

func TestValidateMove(t *testing.T) {
	t.Run("admin moves any deal anywhere", func(t *testing.T) {
		decision := ValidateMove(domain.RoleAdmin, domain.DealStageLead, domain.DealStageNegotiation, false)
		assert.True(t, decision.Allowed)

		decision = ValidateMove(domain.RoleAdmin, domain.DealStageNegotiation, domain.DealStageLead, false)
		assert.True(t, decision.Allowed, "backward moves are allowed")
	})

	t.Run("closer moves own deals anywhere", func(t *testing.T) {
		decision := ValidateMove(domain.RoleCloser, domain.DealStageProposal, domain.DealStageClosedWon, true)
		assert.True(t, decision.Allowed)
	})

	t.Run("closer cannot move other peoples deals", func(t *testing.T) {
		decision := ValidateMove(domain.RoleCloser, domain.DealStageProposal, domain.DealStageNegotiation, false)
		assert.False(t, decision.Allowed)
		assert.NotEmpty(t, decision.Reason)
	})

	t.Run("sdr moves own deals between lead and qualified", func(t *testing.T) {
		decision := ValidateMove(domain.RoleSdr, domain.DealStageLead, domain.DealStageQualified, true)
		assert.True(t, decision.Allowed)

		decision = ValidateMove(domain.RoleSdr, domain.DealStageQualified, domain.DealStageLead, true)
		assert.True(t, decision.Allowed)
	})

	t.Run("sdr cannot advance past qualified", func(t *testing.T) {
		decision := ValidateMove(domain.RoleSdr, domain.DealStageQualified, domain.DealStageProposal, true)
		assert.False(t, decision.Allowed)

		decision = ValidateMove(domain.RoleSdr, domain.DealStageProposal, domain.DealStageNegotiation, true)
		assert.False(t, decision.Allowed)
	})

	t.Run("sdr cannot move unowned deals at all", func(t *testing.T) {
		decision := ValidateMove(domain.RoleSdr, domain.DealStageLead, domain.DealStageQualified, false)
		assert.False(t, decision.Allowed)
	})

	t.Run("finance and viewer have no pipeline write access", func(t *testing.T) {
		for _, role := range []domain.UserRoleType{domain.RoleFinance, domain.RoleViewer} {
			decision := ValidateMove(role, domain.DealStageLead, domain.DealStageQualified, true)
			assert.False(t, decision.Allowed, "role %s should be denied", role)
		}
	})

	t.Run("unknown role is denied", func(t *testing.T) {
		decision := ValidateMove(domain.UserRoleType("intern"), domain.DealStageLead, domain.DealStageQualified, true)
		assert.False(t, decision.Allowed)
	})

	t.Run("unknown stages are denied", func(t *testing.T) {
		decision := ValidateMove(domain.RoleAdmin, domain.DealStage("limbo"), domain.DealStageQualified, true)
		assert.False(t, decision.Allowed)
	})

	t.Run("closed_lost requires a loss reason", func(t *testing.T) {
		decision := ValidateMove(domain.RoleAdmin, domain.DealStageNegotiation, domain.DealStageClosedLost, true)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.RequiresLossReason)
		assert.False(t, decision.RequiresCloseDate)
	})

	t.Run("closed_won requires a close date", func(t *testing.T) {
		decision := ValidateMove(domain.RoleAdmin, domain.DealStageNegotiation, domain.DealStageClosedWon, true)
		assert.True(t, decision.Allowed)
		assert.True(t, decision.RequiresCloseDate)
		assert.False(t, decision.RequiresLossReason)
	})
}

func TestEffectiveRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []domain.UserRoleType
		want  domain.UserRoleType
	}{
		{"admin beats everything", []domain.UserRoleType{domain.RoleViewer, domain.RoleAdmin, domain.RoleSdr}, domain.RoleAdmin},
		{"closer beats sdr", []domain.UserRoleType{domain.RoleSdr, domain.RoleCloser}, domain.RoleCloser},
		{"sdr beats finance", []domain.UserRoleType{domain.RoleFinance, domain.RoleSdr}, domain.RoleSdr},
		{"empty defaults to viewer", nil, domain.RoleViewer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveRole(tt.roles))
		})
	}
}

func TestStageProbabilities(t *testing.T) {
	probs := DefaultStageProbabilities()
	assert.Equal(t, 10, probs.For(domain.DealStageLead))
	assert.Equal(t, 40, probs.For(domain.DealStageQualified))
	assert.Equal(t, 60, probs.For(domain.DealStageProposal))
	assert.Equal(t, 80, probs.For(domain.DealStageNegotiation))
	assert.Equal(t, 100, probs.For(domain.DealStageClosedWon))
	assert.Equal(t, 0, probs.For(domain.DealStageClosedLost))
	assert.Equal(t, 0, probs.For(domain.DealStage("unknown")))
}
