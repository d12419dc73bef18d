package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/pipeline"
	"github.com/vendaflow/crm-api/internal/repository"
	"github.com/vendaflow/crm-api/internal/testutil"
)

// testEnv wires the full service layer against an in-memory database.
type testEnv struct {
	db             *gorm.DB
	dealRepo       *repository.DealRepository
	commissionRepo *repository.CommissionRepository
	ruleRepo       *repository.CommissionRuleRepository
	invoiceRepo    *repository.InvoiceRepository
	userRepo       *repository.UserRepository

	deals       *DealService
	closing     *ClosingService
	commissions *CommissionService
	rules       *CommissionRuleService
	invoices    *InvoiceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	probabilities := pipeline.DefaultStageProbabilities()

	dealRepo := repository.NewDealRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	ruleRepo := repository.NewCommissionRuleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	auditService := NewAuditLogService(auditRepo, logger)

	return &testEnv{
		db:             db,
		dealRepo:       dealRepo,
		commissionRepo: commissionRepo,
		ruleRepo:       ruleRepo,
		invoiceRepo:    invoiceRepo,
		userRepo:       userRepo,
		deals:          NewDealService(dealRepo, auditService, probabilities, logger),
		closing:        NewClosingService(dealRepo, commissionRepo, ruleRepo, invoiceRepo, userRepo, auditService, probabilities, logger, db),
		commissions:    NewCommissionService(commissionRepo, auditService, logger),
		rules:          NewCommissionRuleService(ruleRepo, auditService, logger),
		invoices:       NewInvoiceService(invoiceRepo, dealRepo, auditService, logger),
	}
}

// createDeal inserts a project deal in negotiation worth 100k, then lets the
// caller adjust it before saving.
func (e *testEnv) createDeal(t *testing.T, mutate func(*domain.Deal)) *domain.Deal {
	t.Helper()

	deal := &domain.Deal{
		Title:       "Test Deal",
		DealType:    domain.DealTypeProject,
		Stage:       domain.DealStageNegotiation,
		Probability: 80,
		Value:       100000,
		Currency:    "BRL",
		OwnerID:     "owner-1",
	}
	if mutate != nil {
		mutate(deal)
	}
	require.NoError(t, e.db.Create(deal).Error)
	return deal
}

func (e *testEnv) createRule(t *testing.T, mutate func(*domain.CommissionRule)) *domain.CommissionRule {
	t.Helper()

	rule := &domain.CommissionRule{
		Name:           "Test Rule",
		CommissionType: domain.CommissionTypeClosing,
		Percentage:     5,
		Priority:       100,
		IsActive:       true,
	}
	if mutate != nil {
		mutate(rule)
	}
	require.NoError(t, e.db.Create(rule).Error)
	return rule
}

func strPtr(s string) *string     { return &s }
func intPtr(i int) *int           { return &i }
func floatPtr(v float64) *float64 { return &v }
