package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/mapper"
	"github.com/vendaflow/crm-api/internal/repository"
)

// CommissionService handles commission queries and the payout lifecycle:
// pending -> approved -> paid, with cancellation allowed before payment.
type CommissionService struct {
	commissionRepo *repository.CommissionRepository
	auditService   *AuditLogService
	logger         *zap.Logger
}

func NewCommissionService(
	commissionRepo *repository.CommissionRepository,
	auditService *AuditLogService,
	logger *zap.Logger,
) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		auditService:   auditService,
		logger:         logger,
	}
}

func (s *CommissionService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommissionDTO, error) {
	c, err := s.commissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}
	dto := mapper.ToCommissionDTO(c)
	return &dto, nil
}

func (s *CommissionService) List(ctx context.Context, page, pageSize int, filters *repository.CommissionFilters) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}

	commissions, total, err := s.commissionRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}

	dtos := make([]domain.CommissionDTO, len(commissions))
	for i := range commissions {
		dtos[i] = mapper.ToCommissionDTO(&commissions[i])
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

func (s *CommissionService) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]domain.CommissionDTO, error) {
	commissions, err := s.commissionRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deal commissions: %w", err)
	}
	dtos := make([]domain.CommissionDTO, len(commissions))
	for i := range commissions {
		dtos[i] = mapper.ToCommissionDTO(&commissions[i])
	}
	return dtos, nil
}

// Approve moves a pending commission to approved. The partial unique index
// rejects a second processed commission of the same type on the same deal.
func (s *CommissionService) Approve(ctx context.Context, id uuid.UUID) (*domain.CommissionDTO, error) {
	c, err := s.commissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}

	if c.Status != domain.CommissionStatusPending {
		return nil, fmt.Errorf("%w: commission is %s", ErrInvalidStatusTransition, c.Status)
	}

	now := time.Now()
	c.Status = domain.CommissionStatusApproved
	c.ApprovedAt = &now

	if err := s.commissionRepo.Update(ctx, c); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCommissionsProcessed
		}
		return nil, fmt.Errorf("failed to approve commission: %w", err)
	}

	s.auditStatus(ctx, c)

	dto := mapper.ToCommissionDTO(c)
	return &dto, nil
}

// MarkPaid records payout of an approved commission
func (s *CommissionService) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.CommissionDTO, error) {
	c, err := s.commissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}

	if c.Status != domain.CommissionStatusApproved {
		return nil, fmt.Errorf("%w: commission is %s", ErrInvalidStatusTransition, c.Status)
	}

	now := time.Now()
	c.Status = domain.CommissionStatusPaid
	c.PaidAt = &now

	if err := s.commissionRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to mark commission paid: %w", err)
	}

	s.auditStatus(ctx, c)

	dto := mapper.ToCommissionDTO(c)
	return &dto, nil
}

// Cancel voids a commission that has not been paid out
func (s *CommissionService) Cancel(ctx context.Context, id uuid.UUID) (*domain.CommissionDTO, error) {
	c, err := s.commissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}

	if c.Status == domain.CommissionStatusPaid || c.Status == domain.CommissionStatusCancelled {
		return nil, fmt.Errorf("%w: commission is %s", ErrInvalidStatusTransition, c.Status)
	}

	c.Status = domain.CommissionStatusCancelled

	if err := s.commissionRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to cancel commission: %w", err)
	}

	s.auditStatus(ctx, c)

	dto := mapper.ToCommissionDTO(c)
	return &dto, nil
}

func (s *CommissionService) auditStatus(ctx context.Context, c *domain.Commission) {
	if s.auditService == nil {
		return
	}
	entry := LogEntry{
		Action:     domain.AuditActionStatusChange,
		EntityType: "commission",
		EntityID:   &c.ID,
		NewValues:  mapper.ToCommissionDTO(c),
	}
	if err := s.auditService.Log(ctx, nil, entry); err != nil {
		s.logger.Warn("failed to write commission audit entry", zap.Error(err))
	}
}
