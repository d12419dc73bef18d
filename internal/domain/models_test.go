package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestDealOwnedBy(t *testing.T) {
	t.Run("owner always owns", func(t *testing.T) {
		deal := &Deal{OwnerID: "u1"}
		assert.True(t, deal.OwnedBy("u1"))
		assert.False(t, deal.OwnedBy("u2"))
	})

	t.Run("assigned closer owns", func(t *testing.T) {
		deal := &Deal{OwnerID: "u1", CloserID: strPtr("u2")}
		assert.True(t, deal.OwnedBy("u2"))
	})

	t.Run("sdr owns only until a closer is assigned", func(t *testing.T) {
		deal := &Deal{OwnerID: "u1", SdrID: strPtr("u3")}
		assert.True(t, deal.OwnedBy("u3"))

		deal.CloserID = strPtr("u2")
		assert.False(t, deal.OwnedBy("u3"))
	})
}

func TestDealContractExpired(t *testing.T) {
	closeDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("inside the contract window", func(t *testing.T) {
		deal := &Deal{ActualCloseDate: &closeDate, ContractDurationMonths: intPtr(12)}
		assert.False(t, deal.ContractExpired(closeDate.AddDate(0, 6, 0)))
	})

	t.Run("past the contract window", func(t *testing.T) {
		deal := &Deal{ActualCloseDate: &closeDate, ContractDurationMonths: intPtr(3)}
		assert.True(t, deal.ContractExpired(closeDate.AddDate(0, 4, 0)))
	})

	t.Run("open-ended deals never expire", func(t *testing.T) {
		deal := &Deal{ActualCloseDate: &closeDate}
		assert.False(t, deal.ContractExpired(closeDate.AddDate(10, 0, 0)))

		deal = &Deal{ContractDurationMonths: intPtr(1)}
		assert.False(t, deal.ContractExpired(time.Now()))
	})
}

func TestCommissionStatusIsProcessed(t *testing.T) {
	assert.False(t, CommissionStatusPending.IsProcessed())
	assert.True(t, CommissionStatusApproved.IsProcessed())
	assert.True(t, CommissionStatusPaid.IsProcessed())
	assert.False(t, CommissionStatusCancelled.IsProcessed())
}

func TestUserRoleTypes(t *testing.T) {
	user := &User{Roles: []string{"closer", "finance", "bogus"}}
	roles := user.RoleTypes()
	assert.Equal(t, []UserRoleType{RoleCloser, RoleFinance}, roles)
	assert.True(t, user.HasRole(RoleCloser))
	assert.False(t, user.HasRole(RoleAdmin))
}
