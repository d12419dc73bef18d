package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendaflow/crm-api/internal/domain"
)

// DealFilters contains all filter options for listing deals
type DealFilters struct {
	Stage         *domain.DealStage
	DealType      *domain.DealType
	OwnerID       *string
	SdrID         *string
	CloserID      *string
	MinValue      *float64
	MaxValue      *float64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	CloseAfter    *time.Time
	CloseBefore   *time.Time
	SearchQuery   *string
}

// DealSortOption represents available sort options
type DealSortOption string

const (
	DealSortByCreatedDesc   DealSortOption = "created_desc"
	DealSortByCreatedAsc    DealSortOption = "created_asc"
	DealSortByValueDesc     DealSortOption = "value_desc"
	DealSortByValueAsc      DealSortOption = "value_asc"
	DealSortByCloseDateDesc DealSortOption = "close_date_desc"
	DealSortByCloseDateAsc  DealSortOption = "close_date_asc"
)

type DealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) *DealRepository {
	return &DealRepository{db: db}
}

func (r *DealRepository) Create(ctx context.Context, deal *domain.Deal) error {
	// Omit associations to avoid GORM trying to validate related records
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(deal).Error
}

func (r *DealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	var deal domain.Deal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *DealRepository) Update(ctx context.Context, deal *domain.Deal) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(deal).Error
}

func (r *DealRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Deal{}, "id = ?", id).Error
}

func (r *DealRepository) List(ctx context.Context, page, pageSize int, filters *DealFilters, sortBy DealSortOption) ([]domain.Deal, int64, error) {
	var deals []domain.Deal
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Deal{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.applySorting(query, sortBy)

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&deals).Error

	return deals, total, err
}

// ListWonRetainers returns closed-won retainer deals that have a monthly
// value configured, the candidate set for recurring billing.
func (r *DealRepository) ListWonRetainers(ctx context.Context) ([]domain.Deal, error) {
	var deals []domain.Deal
	err := r.db.WithContext(ctx).
		Where("deal_type = ?", domain.DealTypeRetainer).
		Where("stage = ?", domain.DealStageClosedWon).
		Where("monthly_value IS NOT NULL").
		Order("created_at ASC").
		Find(&deals).Error
	return deals, err
}

func (r *DealRepository) applyFilters(query *gorm.DB, filters *DealFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Stage != nil {
		query = query.Where("stage = ?", *filters.Stage)
	}
	if filters.DealType != nil {
		query = query.Where("deal_type = ?", *filters.DealType)
	}
	if filters.OwnerID != nil {
		query = query.Where("owner_id = ?", *filters.OwnerID)
	}
	if filters.SdrID != nil {
		query = query.Where("sdr_id = ?", *filters.SdrID)
	}
	if filters.CloserID != nil {
		query = query.Where("closer_id = ?", *filters.CloserID)
	}
	if filters.MinValue != nil {
		query = query.Where("value >= ?", *filters.MinValue)
	}
	if filters.MaxValue != nil {
		query = query.Where("value <= ?", *filters.MaxValue)
	}
	if filters.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filters.CreatedAfter)
	}
	if filters.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filters.CreatedBefore)
	}
	if filters.CloseAfter != nil {
		query = query.Where("expected_close_date >= ?", *filters.CloseAfter)
	}
	if filters.CloseBefore != nil {
		query = query.Where("expected_close_date <= ?", *filters.CloseBefore)
	}
	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		term := "%" + strings.ToLower(*filters.SearchQuery) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}
	return query
}

func (r *DealRepository) applySorting(query *gorm.DB, sortBy DealSortOption) *gorm.DB {
	switch sortBy {
	case DealSortByCreatedAsc:
		return query.Order("created_at ASC")
	case DealSortByValueDesc:
		return query.Order("value DESC")
	case DealSortByValueAsc:
		return query.Order("value ASC")
	case DealSortByCloseDateDesc:
		return query.Order("expected_close_date DESC NULLS LAST")
	case DealSortByCloseDateAsc:
		return query.Order("expected_close_date ASC NULLS LAST")
	default:
		return query.Order("created_at DESC")
	}
}
