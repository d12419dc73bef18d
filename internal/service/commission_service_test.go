package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendaflow/crm-api/internal/domain"
)

func createCommission(t *testing.T, env *testEnv, deal *domain.Deal, status domain.CommissionStatus) *domain.Commission {
	t.Helper()
	c := &domain.Commission{
		DealID:         deal.ID,
		UserID:         "closer-1",
		CommissionType: domain.CommissionTypeClosing,
		BaseValue:      deal.Value,
		Percentage:     5,
		Amount:         5000,
		Status:         status,
	}
	if status == domain.CommissionStatusApproved || status == domain.CommissionStatusPaid {
		now := time.Now()
		c.ApprovedAt = &now
	}
	require.NoError(t, env.db.Create(c).Error)
	return c
}

func TestCommissionApprove(t *testing.T) {
	t.Run("pending commission becomes approved", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		c := createCommission(t, env, deal, domain.CommissionStatusPending)

		dto, err := env.commissions.Approve(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CommissionStatusApproved, dto.Status)
		assert.NotNil(t, dto.ApprovedAt)
	})

	t.Run("approved commission cannot be approved again", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		c := createCommission(t, env, deal, domain.CommissionStatusApproved)

		_, err := env.commissions.Approve(context.Background(), c.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("second closing commission on the same deal cannot be approved", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		first := createCommission(t, env, deal, domain.CommissionStatusPending)
		second := createCommission(t, env, deal, domain.CommissionStatusPending)

		_, err := env.commissions.Approve(context.Background(), first.ID)
		require.NoError(t, err)

		_, err = env.commissions.Approve(context.Background(), second.ID)
		assert.ErrorIs(t, err, ErrCommissionsProcessed)
	})
}

func TestCommissionMarkPaid(t *testing.T) {
	t.Run("approved commission can be paid", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		c := createCommission(t, env, deal, domain.CommissionStatusApproved)

		dto, err := env.commissions.MarkPaid(context.Background(), c.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CommissionStatusPaid, dto.Status)
		assert.NotNil(t, dto.PaidAt)
	})

	t.Run("pending commission cannot skip approval", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		c := createCommission(t, env, deal, domain.CommissionStatusPending)

		_, err := env.commissions.MarkPaid(context.Background(), c.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}

func TestCommissionCancel(t *testing.T) {
	t.Run("pending and approved commissions can be cancelled", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		pending := createCommission(t, env, deal, domain.CommissionStatusPending)

		dto, err := env.commissions.Cancel(context.Background(), pending.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.CommissionStatusCancelled, dto.Status)
	})

	t.Run("paid commission cannot be cancelled", func(t *testing.T) {
		env := newTestEnv(t)
		deal := env.createDeal(t, nil)
		c := createCommission(t, env, deal, domain.CommissionStatusPaid)

		_, err := env.commissions.Cancel(context.Background(), c.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}
