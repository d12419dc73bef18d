package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendaflow/crm-api/internal/domain"
)

// CommissionFilters contains filter options for listing commissions
type CommissionFilters struct {
	DealID         *uuid.UUID
	UserID         *string
	CommissionType *domain.CommissionType
	Status         *domain.CommissionStatus
	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
}

type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction, so
// reads inside a transaction closure see its uncommitted writes.
func (r *CommissionRepository) WithTx(tx *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: tx}
}

func (r *CommissionRepository) Create(ctx context.Context, commission *domain.Commission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(commission).Error
}

func (r *CommissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Commission, error) {
	var commission domain.Commission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) Update(ctx context.Context, commission *domain.Commission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(commission).Error
}

func (r *CommissionRepository) List(ctx context.Context, page, pageSize int, filters *CommissionFilters) ([]domain.Commission, int64, error) {
	var commissions []domain.Commission
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Commission{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&commissions).Error

	return commissions, total, err
}

func (r *CommissionRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]domain.Commission, error) {
	var commissions []domain.Commission
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at ASC").
		Find(&commissions).Error
	return commissions, err
}

// HasProcessedClosing reports whether the deal already has an approved or paid
// closing commission. The partial unique index enforces this at write time;
// this read is only an early exit for friendlier errors.
func (r *CommissionRepository) HasProcessedClosing(ctx context.Context, dealID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Commission{}).
		Where("deal_id = ?", dealID).
		Where("commission_type = ?", domain.CommissionTypeClosing).
		Where("status IN ?", []domain.CommissionStatus{domain.CommissionStatusApproved, domain.CommissionStatusPaid}).
		Count(&count).Error
	return count > 0, err
}

// GetPendingQualification returns the pending qualification commission for a
// deal and user, or gorm.ErrRecordNotFound when none exists.
func (r *CommissionRepository) GetPendingQualification(ctx context.Context, dealID uuid.UUID, userID string) (*domain.Commission, error) {
	var commission domain.Commission
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Where("user_id = ?", userID).
		Where("commission_type = ?", domain.CommissionTypeQualification).
		Where("status = ?", domain.CommissionStatusPending).
		First(&commission).Error
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

func (r *CommissionRepository) applyFilters(query *gorm.DB, filters *CommissionFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.DealID != nil {
		query = query.Where("deal_id = ?", *filters.DealID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.CommissionType != nil {
		query = query.Where("commission_type = ?", *filters.CommissionType)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filters.CreatedAfter)
	}
	if filters.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filters.CreatedBefore)
	}
	return query
}
