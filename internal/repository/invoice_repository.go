package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vendaflow/crm-api/internal/domain"
)

// InvoiceFilters contains filter options for listing invoices
type InvoiceFilters struct {
	DealID      *uuid.UUID
	Status      *domain.InvoiceStatus
	IsRecurring *bool
	IssuedAfter *time.Time
	DueBefore   *time.Time
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *InvoiceRepository) WithTx(tx *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: tx}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

// CreateBatch inserts all invoices in one statement; the batch commits or
// fails as a whole.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&invoices).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, filters *InvoiceFilters) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("issue_date DESC").Offset(offset).Limit(pageSize).Find(&invoices).Error

	return invoices, total, err
}

func (r *InvoiceRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("issue_date ASC").
		Find(&invoices).Error
	return invoices, err
}

// CountByDeal returns the number of invoices a deal has. Used to derive the
// per-deal sequence segment of invoice numbers.
func (r *InvoiceRepository) CountByDeal(ctx context.Context, dealID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("deal_id = ?", dealID).
		Count(&count).Error
	return count, err
}

// DealIDsInvoicedForPeriod returns the subset of the given deals that already
// have an invoice for the month and year. Manual invoices count too, so a
// hand-issued invoice blocks the generator from double-billing the period.
func (r *InvoiceRepository) DealIDsInvoicedForPeriod(ctx context.Context, dealIDs []uuid.UUID, month, year int) (map[uuid.UUID]bool, error) {
	invoiced := make(map[uuid.UUID]bool)
	if len(dealIDs) == 0 {
		return invoiced, nil
	}

	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("deal_id IN ?", dealIDs).
		Where("recurrence_month = ? AND recurrence_year = ?", month, year).
		Pluck("deal_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		invoiced[id] = true
	}
	return invoiced, nil
}

// ListOverdue returns pending invoices whose due date has passed
func (r *InvoiceRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.InvoiceStatusPending).
		Where("due_date < ?", asOf).
		Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) applyFilters(query *gorm.DB, filters *InvoiceFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.DealID != nil {
		query = query.Where("deal_id = ?", *filters.DealID)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.IsRecurring != nil {
		query = query.Where("is_recurring = ?", *filters.IsRecurring)
	}
	if filters.IssuedAfter != nil {
		query = query.Where("issue_date >= ?", *filters.IssuedAfter)
	}
	if filters.DueBefore != nil {
		query = query.Where("due_date <= ?", *filters.DueBefore)
	}
	return query
}
