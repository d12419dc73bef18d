package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/domain"
)

// AuditLogFilters contains filter options for querying audit logs
type AuditLogFilters struct {
	EntityType *string
	EntityID   *string
	UserID     *string
	Action     *string
}

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *AuditLogRepository) List(ctx context.Context, page, pageSize int, filters *AuditLogFilters) ([]domain.AuditLog, int64, error) {
	var logs []domain.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.AuditLog{})
	if filters != nil {
		if filters.EntityType != nil {
			query = query.Where("entity_type = ?", *filters.EntityType)
		}
		if filters.EntityID != nil {
			query = query.Where("entity_id = ?", *filters.EntityID)
		}
		if filters.UserID != nil {
			query = query.Where("user_id = ?", *filters.UserID)
		}
		if filters.Action != nil {
			query = query.Where("action = ?", *filters.Action)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error

	return logs, total, err
}
