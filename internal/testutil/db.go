// Package testutil provides shared helpers for database-backed tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vendaflow/crm-api/internal/auth"
	"github.com/vendaflow/crm-api/internal/domain"
)

// NewTestDB creates a private in-memory sqlite database with the full schema
// applied, including the partial unique indexes production gets from the
// goose migrations.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory database")

	// A private in-memory database exists per connection, so the pool must
	// stay at a single connection or queries land on an empty schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&domain.User{},
		&domain.UserRole{},
		&domain.Deal{},
		&domain.CommissionRule{},
		&domain.CommissionTier{},
		&domain.Commission{},
		&domain.Invoice{},
		&domain.AuditLog{},
	)
	require.NoError(t, err, "failed to migrate schema")

	// Mirror the production partial unique indexes; sqlite supports the
	// same WHERE clause syntax.
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_commissions_processed_per_deal
		ON commissions (deal_id, commission_type)
		WHERE status IN ('approved', 'paid')`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uniq_invoices_recurrence_period
		ON invoices (deal_id, recurrence_month, recurrence_year)
		WHERE is_recurring = 1`).Error)

	return db
}

// CtxWithUser returns a context carrying an authenticated user with the
// given roles.
func CtxWithUser(userID string, roles ...domain.UserRoleType) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      userID,
		DisplayName: "Test User",
		Email:       userID + "@example.com",
		Roles:       roles,
	})
}

// CreateTestUser inserts a user row with the given roles.
func CreateTestUser(t *testing.T, db *gorm.DB, id string, roles ...string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: "User " + id,
		Roles:       roles,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
