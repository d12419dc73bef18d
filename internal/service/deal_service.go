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

	"github.com/vendaflow/crm-api/internal/auth"
	"github.com/vendaflow/crm-api/internal/commission"
	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/mapper"
	"github.com/vendaflow/crm-api/internal/pipeline"
	"github.com/vendaflow/crm-api/internal/repository"
)

type DealService struct {
	dealRepo      *repository.DealRepository
	auditService  *AuditLogService
	probabilities pipeline.StageProbabilities
	logger        *zap.Logger
}

func NewDealService(
	dealRepo *repository.DealRepository,
	auditService *AuditLogService,
	probabilities pipeline.StageProbabilities,
	logger *zap.Logger,
) *DealService {
	return &DealService{
		dealRepo:      dealRepo,
		auditService:  auditService,
		probabilities: probabilities,
		logger:        logger,
	}
}

func (s *DealService) Create(ctx context.Context, req *domain.CreateDealRequest) (*domain.DealDTO, error) {
	currency := req.Currency
	if currency == "" {
		currency = "BRL"
	}

	deal := &domain.Deal{
		Title:                  req.Title,
		Description:            req.Description,
		DealType:               req.DealType,
		Stage:                  domain.DealStageLead,
		Probability:            s.probabilities.For(domain.DealStageLead),
		Value:                  req.Value,
		MonthlyValue:           req.MonthlyValue,
		ContractDurationMonths: req.ContractDurationMonths,
		Currency:               currency,
		OwnerID:                req.OwnerID,
		SdrID:                  req.SdrID,
		CloserID:               req.CloserID,
		ExpectedCloseDate:      req.ExpectedCloseDate,
		MonthlyHours:           req.MonthlyHours,
		HoursRollover:          req.HoursRollover,
	}

	if err := applyRetainerInvariant(deal); err != nil {
		return nil, err
	}

	if err := s.dealRepo.Create(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to create deal: %w", err)
	}

	s.audit(ctx, domain.AuditActionCreate, deal, nil)

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

func (s *DealService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

func (s *DealService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDealRequest) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		if !deal.OwnedBy(userCtx.UserID) && !userCtx.IsAdmin() {
			return nil, ErrForbidden
		}
	}

	old := *deal

	deal.Title = req.Title
	deal.Description = req.Description
	deal.Value = req.Value
	deal.MonthlyValue = req.MonthlyValue
	deal.ContractDurationMonths = req.ContractDurationMonths
	if req.Currency != "" {
		deal.Currency = req.Currency
	}
	deal.SdrID = req.SdrID
	deal.CloserID = req.CloserID
	deal.ExpectedCloseDate = req.ExpectedCloseDate
	deal.MonthlyHours = req.MonthlyHours
	if req.HoursRollover != nil {
		deal.HoursRollover = *req.HoursRollover
	}

	if err := applyRetainerInvariant(deal); err != nil {
		return nil, err
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to update deal: %w", err)
	}

	s.audit(ctx, domain.AuditActionUpdate, deal, &old)

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

func (s *DealService) Delete(ctx context.Context, id uuid.UUID) error {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get deal: %w", err)
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		if !deal.OwnedBy(userCtx.UserID) && !userCtx.IsAdmin() {
			return ErrForbidden
		}
	}

	if err := s.dealRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}

	s.audit(ctx, domain.AuditActionDelete, deal, nil)
	return nil
}

func (s *DealService) List(ctx context.Context, page, pageSize int, filters *repository.DealFilters, sortBy repository.DealSortOption) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}

	deals, total, err := s.dealRepo.List(ctx, page, pageSize, filters, sortBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	dtos := make([]domain.DealDTO, len(deals))
	for i := range deals {
		dtos[i] = mapper.ToDealDTO(&deals[i])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// MoveStage moves a deal through the funnel after role and ownership checks.
// Moves into closed_won are not handled here; winning a deal runs through
// ClosingService so commissions and billing happen atomically with the move.
func (s *DealService) MoveStage(ctx context.Context, id uuid.UUID, req *domain.MoveDealStageRequest) (*domain.DealDTO, error) {
	if !req.Stage.IsValid() {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, req.Stage)
	}
	if req.Stage == domain.DealStageClosedWon {
		return nil, fmt.Errorf("%w: winning a deal requires the close operation", ErrInvalidInput)
	}

	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	if deal.Stage == req.Stage {
		dto := mapper.ToDealDTO(deal)
		return &dto, nil
	}

	decision := s.validateMove(ctx, deal, req.Stage)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrStageMoveDenied, decision.Reason)
	}

	old := *deal
	deal.Stage = req.Stage
	deal.Probability = s.probabilities.For(req.Stage)

	if req.Stage == domain.DealStageClosedLost {
		if req.LossReason == nil || !req.LossReason.IsValid() {
			return nil, ErrLossReasonRequired
		}
		if *req.LossReason == domain.LossReasonCompetitor && strings.TrimSpace(req.LossCompetitor) == "" {
			return nil, fmt.Errorf("%w: competitor name is required when the loss reason is competitor", ErrLossReasonRequired)
		}
		now := time.Now()
		deal.ActualCloseDate = &now
		deal.LossReason = req.LossReason
		deal.LossNotes = req.LossNotes
		deal.LossCompetitor = req.LossCompetitor
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to move deal stage: %w", err)
	}

	s.logger.Info("deal stage moved",
		zap.String("deal_id", deal.ID.String()),
		zap.String("from", string(old.Stage)),
		zap.String("to", string(deal.Stage)))
	s.audit(ctx, domain.AuditActionStageChange, deal, &old)

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

// ReopenDeal reopens a lost deal as a new lead, clearing its loss data
func (s *DealService) ReopenDeal(ctx context.Context, id uuid.UUID) (*domain.DealDTO, error) {
	deal, err := s.dealRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}

	if deal.Stage != domain.DealStageClosedLost {
		return nil, fmt.Errorf("%w: only lost deals can be reopened", ErrInvalidInput)
	}

	decision := s.validateMove(ctx, deal, domain.DealStageLead)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrStageMoveDenied, decision.Reason)
	}

	old := *deal
	deal.Stage = domain.DealStageLead
	deal.Probability = s.probabilities.For(domain.DealStageLead)
	deal.ActualCloseDate = nil
	deal.LossReason = nil
	deal.LossNotes = ""
	deal.LossCompetitor = ""

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, fmt.Errorf("failed to reopen deal: %w", err)
	}

	s.audit(ctx, domain.AuditActionStageChange, deal, &old)

	dto := mapper.ToDealDTO(deal)
	return &dto, nil
}

func (s *DealService) validateMove(ctx context.Context, deal *domain.Deal, to domain.DealStage) pipeline.MoveDecision {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		// Internal callers without a user context act with full rights.
		return pipeline.ValidateMove(domain.RoleAdmin, deal.Stage, to, true)
	}
	role := pipeline.EffectiveRole(userCtx.Roles)
	return pipeline.ValidateMove(role, deal.Stage, to, deal.OwnedBy(userCtx.UserID))
}

func (s *DealService) audit(ctx context.Context, action domain.AuditAction, deal *domain.Deal, old *domain.Deal) {
	if s.auditService == nil {
		return
	}
	entry := LogEntry{
		Action:     action,
		EntityType: "deal",
		EntityID:   &deal.ID,
		EntityName: deal.Title,
		NewValues:  mapper.ToDealDTO(deal),
	}
	if old != nil {
		entry.OldValues = mapper.ToDealDTO(old)
	}
	if err := s.auditService.Log(ctx, nil, entry); err != nil {
		s.logger.Warn("failed to write deal audit entry", zap.Error(err))
	}
}

// applyRetainerInvariant enforces retainer bookkeeping: a retainer deal must
// carry a monthly value and contract duration, and its total value is always
// derived from them.
func applyRetainerInvariant(deal *domain.Deal) error {
	if !deal.IsRetainer() {
		return nil
	}
	if deal.MonthlyValue == nil || deal.ContractDurationMonths == nil {
		return ErrRetainerFieldsRequired
	}
	if *deal.MonthlyValue <= 0 || *deal.ContractDurationMonths <= 0 {
		return ErrRetainerFieldsRequired
	}
	deal.Value = commission.RoundCurrency(*deal.MonthlyValue * float64(*deal.ContractDurationMonths))
	return nil
}
