package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/repository"
	"github.com/vendaflow/crm-api/internal/testutil"
)

func TestEffectiveRoles(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	assign := func(t *testing.T, userID string, role domain.UserRoleType, mutate func(*domain.UserRole)) {
		t.Helper()
		row := &domain.UserRole{
			UserID:    userID,
			Role:      role,
			GrantedBy: "admin-1",
			GrantedAt: time.Now(),
			IsActive:  true,
		}
		if mutate != nil {
			mutate(row)
		}
		require.NoError(t, db.Create(row).Error)
	}

	t.Run("unions user roles with assignment rows", func(t *testing.T) {
		testutil.CreateTestUser(t, db, "rep-1", "viewer")
		assign(t, "rep-1", domain.RoleCloser, nil)

		roles, err := repo.EffectiveRoles(ctx, "rep-1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.UserRoleType{domain.RoleViewer, domain.RoleCloser}, roles)
	})

	t.Run("revoked assignments grant nothing", func(t *testing.T) {
		testutil.CreateTestUser(t, db, "rep-2", "viewer")
		assign(t, "rep-2", domain.RoleCloser, func(row *domain.UserRole) {
			row.IsActive = false
		})

		roles, err := repo.EffectiveRoles(ctx, "rep-2")
		require.NoError(t, err)
		assert.Equal(t, []domain.UserRoleType{domain.RoleViewer}, roles)
	})

	t.Run("expired assignments grant nothing", func(t *testing.T) {
		testutil.CreateTestUser(t, db, "rep-3", "viewer")
		expired := time.Now().Add(-24 * time.Hour)
		assign(t, "rep-3", domain.RoleCloser, func(row *domain.UserRole) {
			row.ExpiresAt = &expired
		})

		roles, err := repo.EffectiveRoles(ctx, "rep-3")
		require.NoError(t, err)
		assert.Equal(t, []domain.UserRoleType{domain.RoleViewer}, roles)
	})

	t.Run("future expiry still grants the role", func(t *testing.T) {
		testutil.CreateTestUser(t, db, "rep-4", "viewer")
		future := time.Now().Add(24 * time.Hour)
		assign(t, "rep-4", domain.RoleAdmin, func(row *domain.UserRole) {
			row.ExpiresAt = &future
		})

		roles, err := repo.EffectiveRoles(ctx, "rep-4")
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.UserRoleType{domain.RoleViewer, domain.RoleAdmin}, roles)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.EffectiveRoles(ctx, "nobody")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}
