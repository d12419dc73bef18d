package pipeline

import (
	"fmt"

	"github.com/vendaflow/crm-api/internal/domain"
)

// MoveDecision is the outcome of validating a stage move. When Allowed is
// false, Reason carries the human-readable rejection. RequiresLossReason and
// RequiresCloseDate flag the extra confirmation data the caller must collect
// before the move is finalized.
type MoveDecision struct {
	Allowed            bool
	Reason             string
	RequiresLossReason bool
	RequiresCloseDate  bool
}

func allowed(to domain.DealStage) MoveDecision {
	return MoveDecision{
		Allowed:            true,
		RequiresLossReason: to == domain.DealStageClosedLost,
		RequiresCloseDate:  to == domain.DealStageClosedWon,
	}
}

func denied(reason string) MoveDecision {
	return MoveDecision{Allowed: false, Reason: reason}
}

// sdrStages are the only stages an SDR may move deals between.
func sdrStage(stage domain.DealStage) bool {
	return stage == domain.DealStageLead || stage == domain.DealStageQualified
}

// ValidateMove decides whether a user with the given role may move a deal
// from one stage to another. It is a pure function with no side effects; the
// caller is expected to short-circuit from == to before calling.
//
// The switch is exhaustive over the role enum so adding a role without
// deciding its pipeline rights fails loudly here.
func ValidateMove(role domain.UserRoleType, from, to domain.DealStage, ownsDeal bool) MoveDecision {
	if !from.IsValid() || !to.IsValid() {
		return denied(fmt.Sprintf("unknown stage transition %q -> %q", from, to))
	}

	switch role {
	case domain.RoleAdmin:
		// Admins move any deal anywhere, forward or backward.
		return allowed(to)

	case domain.RoleCloser:
		if !ownsDeal {
			return denied("closers can only move deals they own or are assigned to close")
		}
		return allowed(to)

	case domain.RoleSdr:
		if !ownsDeal {
			return denied("SDRs can only move their own deals")
		}
		if !sdrStage(from) || !sdrStage(to) {
			return denied("SDRs can only move deals between lead and qualified; later stages require a closer")
		}
		return allowed(to)

	case domain.RoleFinance, domain.RoleViewer:
		return denied(fmt.Sprintf("role %s has no pipeline write access", role))

	default:
		return denied(fmt.Sprintf("unknown role %q", role))
	}
}

// EffectiveRole picks the strongest pipeline role for a multi-role user.
// Precedence: admin > closer > sdr > finance > viewer.
func EffectiveRole(roles []domain.UserRoleType) domain.UserRoleType {
	precedence := []domain.UserRoleType{
		domain.RoleAdmin,
		domain.RoleCloser,
		domain.RoleSdr,
		domain.RoleFinance,
		domain.RoleViewer,
	}
	for _, candidate := range precedence {
		for _, r := range roles {
			if r == candidate {
				return candidate
			}
		}
	}
	return domain.RoleViewer
}
