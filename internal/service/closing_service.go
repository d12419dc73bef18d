package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendaflow/crm-api/internal/auth"
	"github.com/vendaflow/crm-api/internal/commission"
	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/mapper"
	"github.com/vendaflow/crm-api/internal/pipeline"
	"github.com/vendaflow/crm-api/internal/repository"
)

// ClosingService orchestrates winning a deal: the stage move, commission
// creation for the closer, qualification commission approval for the SDR,
// and the first recurring invoice, all in one transaction.
type ClosingService struct {
	dealRepo       *repository.DealRepository
	commissionRepo *repository.CommissionRepository
	ruleRepo       *repository.CommissionRuleRepository
	invoiceRepo    *repository.InvoiceRepository
	userRepo       *repository.UserRepository
	auditService   *AuditLogService
	probabilities  pipeline.StageProbabilities
	logger         *zap.Logger
	db             *gorm.DB
}

func NewClosingService(
	dealRepo *repository.DealRepository,
	commissionRepo *repository.CommissionRepository,
	ruleRepo *repository.CommissionRuleRepository,
	invoiceRepo *repository.InvoiceRepository,
	userRepo *repository.UserRepository,
	auditService *AuditLogService,
	probabilities pipeline.StageProbabilities,
	logger *zap.Logger,
	db *gorm.DB,
) *ClosingService {
	return &ClosingService{
		dealRepo:       dealRepo,
		commissionRepo: commissionRepo,
		ruleRepo:       ruleRepo,
		invoiceRepo:    invoiceRepo,
		userRepo:       userRepo,
		auditService:   auditService,
		probabilities:  probabilities,
		logger:         logger,
		db:             db,
	}
}

// CloseDeal wins a deal. The whole side-effect set commits or rolls back
// together; a duplicate closing commission aborts the close. The database
// unique constraint on processed commissions is the final authority on
// duplicates, the repository pre-check only produces a friendlier error.
func (s *ClosingService) CloseDeal(ctx context.Context, id uuid.UUID, req *domain.CloseDealRequest) (*domain.CloseDealResult, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	if deal.Stage.IsTerminal() {
		return nil, ErrDealAlreadyClosed
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		role := pipeline.EffectiveRole(userCtx.Roles)
		decision := pipeline.ValidateMove(role, deal.Stage, domain.DealStageClosedWon, deal.OwnedBy(userCtx.UserID))
		if !decision.Allowed {
			return nil, fmt.Errorf("%w: %s", ErrStageMoveDenied, decision.Reason)
		}
	}

	closeDate := time.Now()
	if req.ActualCloseDate != nil {
		closeDate = *req.ActualCloseDate
	}

	startBilling := req.StartRecurringBilling && deal.IsRetainer()
	if startBilling && deal.MonthlyValue == nil {
		return nil, ErrRetainerFieldsRequired
	}

	closerID, hasCloser, err := s.resolveCloser(ctx, deal)
	if err != nil {
		return nil, err
	}

	processed, err := s.commissionRepo.HasProcessedClosing(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing commissions: %w", err)
	}
	if processed {
		return nil, ErrCommissionsProcessed
	}

	closingRules, err := s.ruleRepo.ListActiveByType(ctx, domain.CommissionTypeClosing)
	if err != nil {
		return nil, fmt.Errorf("failed to load closing rules: %w", err)
	}
	qualificationRules, err := s.ruleRepo.ListActiveByType(ctx, domain.CommissionTypeQualification)
	if err != nil {
		return nil, fmt.Errorf("failed to load qualification rules: %w", err)
	}

	old := *deal
	commissionsCreated := 0
	invoiceCreated := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		deal.Stage = domain.DealStageClosedWon
		deal.Probability = s.probabilities.For(domain.DealStageClosedWon)
		deal.ActualCloseDate = &closeDate

		if err := tx.Omit(clause.Associations).Save(deal).Error; err != nil {
			return fmt.Errorf("failed to mark deal as won: %w", err)
		}

		if rule := commission.Resolve(closingRules, domain.CommissionTypeClosing, domain.RoleCloser, deal.DealType); rule != nil && hasCloser {
			amount, pct := commission.Compute(rule, deal.Value)
			if amount > 0 {
				row := &domain.Commission{
					DealID:         deal.ID,
					UserID:         closerID,
					CommissionType: domain.CommissionTypeClosing,
					BaseValue:      deal.Value,
					Percentage:     pct,
					Amount:         commission.RoundCurrency(amount),
					Status:         domain.CommissionStatusPending,
				}
				if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
					return fmt.Errorf("failed to create closing commission: %w", err)
				}
				commissionsCreated++
			}
		}

		if deal.SdrID != nil {
			if err := s.settleQualification(ctx, tx, deal, qualificationRules, &commissionsCreated); err != nil {
				return err
			}
		}

		if startBilling {
			invoice, err := s.buildFirstInvoice(ctx, tx, deal, closeDate)
			if err != nil {
				return err
			}
			if err := tx.Omit(clause.Associations).Create(invoice).Error; err != nil {
				return fmt.Errorf("failed to create first invoice: %w", err)
			}
			invoiceCreated = true
		}

		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCommissionsProcessed
		}
		return nil, err
	}

	s.logger.Info("deal closed as won",
		zap.String("deal_id", deal.ID.String()),
		zap.String("closer_id", closerID),
		zap.Float64("value", deal.Value),
		zap.Int("commissions_created", commissionsCreated),
		zap.Bool("invoice_created", invoiceCreated))

	if s.auditService != nil {
		entry := LogEntry{
			Action:     domain.AuditActionDealClosed,
			EntityType: "deal",
			EntityID:   &deal.ID,
			EntityName: deal.Title,
			OldValues:  mapper.ToDealDTO(&old),
			NewValues:  mapper.ToDealDTO(deal),
			Metadata: map[string]interface{}{
				"commissionsCreated": commissionsCreated,
				"invoiceCreated":     invoiceCreated,
				"closeDate":          closeDate.Format(time.RFC3339),
			},
		}
		if err := s.auditService.Log(ctx, nil, entry); err != nil {
			s.logger.Warn("failed to write close audit entry", zap.Error(err))
		}
	}

	return &domain.CloseDealResult{
		Deal:               mapper.ToDealDTO(deal),
		CommissionsCreated: commissionsCreated,
		InvoiceCreated:     invoiceCreated,
	}, nil
}

// resolveCloser determines who receives the closing commission. The assigned
// closer wins if they actually hold the closer or admin role; without one the
// owner qualifies under the same role check. A deal with no eligible
// recipient still closes, it just produces no closing commission.
func (s *ClosingService) resolveCloser(ctx context.Context, deal *domain.Deal) (string, bool, error) {
	if deal.CloserID != nil {
		eligible, err := s.hasClosingRights(ctx, *deal.CloserID)
		if err != nil {
			return "", false, err
		}
		if eligible {
			return *deal.CloserID, true, nil
		}
		s.logger.Warn("assigned closer lacks the closer role, skipping closing commission",
			zap.String("deal_id", deal.ID.String()),
			zap.String("closer_id", *deal.CloserID))
		return "", false, nil
	}

	eligible, err := s.hasClosingRights(ctx, deal.OwnerID)
	if err != nil {
		return "", false, err
	}
	if eligible {
		return deal.OwnerID, true, nil
	}
	return "", false, nil
}

func (s *ClosingService) hasClosingRights(ctx context.Context, userID string) (bool, error) {
	roles, err := s.userRepo.EffectiveRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load user roles: %w", err)
	}
	for _, role := range roles {
		if role == domain.RoleCloser || role == domain.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

// settleQualification approves the SDR's pending qualification commission
// as-is, without recomputing its amount. When none exists yet, one is created
// from the current qualification rules. All reads go through tx so they stay
// inside the transaction.
func (s *ClosingService) settleQualification(ctx context.Context, tx *gorm.DB, deal *domain.Deal, rules []domain.CommissionRule, created *int) error {
	now := time.Now()

	pending, err := s.commissionRepo.WithTx(tx).GetPendingQualification(ctx, deal.ID, *deal.SdrID)
	if err == nil {
		pending.Status = domain.CommissionStatusApproved
		pending.ApprovedAt = &now
		if err := tx.Omit(clause.Associations).Save(pending).Error; err != nil {
			return fmt.Errorf("failed to approve qualification commission: %w", err)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up qualification commission: %w", err)
	}

	rule := commission.Resolve(rules, domain.CommissionTypeQualification, domain.RoleSdr, deal.DealType)
	if rule == nil {
		return nil
	}

	amount, pct := commission.Compute(rule, deal.Value)
	if amount <= 0 {
		return nil
	}

	row := &domain.Commission{
		DealID:         deal.ID,
		UserID:         *deal.SdrID,
		CommissionType: domain.CommissionTypeQualification,
		BaseValue:      deal.Value,
		Percentage:     pct,
		Amount:         commission.RoundCurrency(amount),
		Status:         domain.CommissionStatusApproved,
		ApprovedAt:     &now,
	}
	if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create qualification commission: %w", err)
	}
	*created++
	return nil
}

func (s *ClosingService) buildFirstInvoice(ctx context.Context, tx *gorm.DB, deal *domain.Deal, closeDate time.Time) (*domain.Invoice, error) {
	seq, err := s.invoiceRepo.WithTx(tx).CountByDeal(ctx, deal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count deal invoices: %w", err)
	}

	month := int(closeDate.Month())
	year := closeDate.Year()
	return &domain.Invoice{
		DealID:          deal.ID,
		InvoiceNumber:   buildInvoiceNumber(deal.ID, closeDate, int(seq)+1),
		Amount:          commission.RoundCurrency(*deal.MonthlyValue),
		IssueDate:       closeDate,
		DueDate:         closeDate.AddDate(0, 0, 30),
		Status:          domain.InvoiceStatusPending,
		IsRecurring:     true,
		RecurrenceMonth: &month,
		RecurrenceYear:  &year,
	}, nil
}

// isUniqueViolation matches unique constraint errors from postgres and the
// sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
