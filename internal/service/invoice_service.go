package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/commission"
	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/mapper"
	"github.com/vendaflow/crm-api/internal/repository"
)

// InvoiceService handles invoice queries, status changes, and the monthly
// recurring invoice run for won retainer deals.
type InvoiceService struct {
	invoiceRepo  *repository.InvoiceRepository
	dealRepo     *repository.DealRepository
	auditService *AuditLogService
	logger       *zap.Logger
}

func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	dealRepo *repository.DealRepository,
	auditService *AuditLogService,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:  invoiceRepo,
		dealRepo:     dealRepo,
		auditService: auditService,
		logger:       logger,
	}
}

// buildInvoiceNumber produces a deterministic invoice number from the billing
// period, the deal, and a per-deal sequence. Rerunning a period yields the
// same number, so the unique column doubles as a duplicate guard.
func buildInvoiceNumber(dealID uuid.UUID, period time.Time, seq int) string {
	return fmt.Sprintf("INV-%d%02d-%s-%03d", period.Year(), int(period.Month()), dealID.String()[:8], seq)
}

// GenerateRecurring runs one recurring billing cycle for the month of the
// given instant. Deals already invoiced for the period and deals whose
// contract has run out are skipped. Failures on one deal do not stop the
// run; they are reported in the summary.
func (s *InvoiceService) GenerateRecurring(ctx context.Context, now time.Time) (*domain.RecurringRunSummary, error) {
	month := int(now.Month())
	year := now.Year()
	summary := &domain.RecurringRunSummary{Errors: []string{}}

	deals, err := s.dealRepo.ListWonRetainers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list retainer deals: %w", err)
	}
	if len(deals) == 0 {
		return summary, nil
	}

	dealIDs := make([]uuid.UUID, len(deals))
	for i := range deals {
		dealIDs[i] = deals[i].ID
	}

	invoiced, err := s.invoiceRepo.DealIDsInvoicedForPeriod(ctx, dealIDs, month, year)
	if err != nil {
		return nil, fmt.Errorf("failed to check invoiced deals: %w", err)
	}

	issueDate := time.Date(year, now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dueDate := time.Date(year, now.Month(), 10, 0, 0, 0, 0, time.UTC)

	var batch []domain.Invoice
	for i := range deals {
		deal := &deals[i]
		if invoiced[deal.ID] {
			continue
		}
		if deal.ContractExpired(now) {
			s.logger.Debug("skipping expired retainer contract",
				zap.String("deal_id", deal.ID.String()))
			continue
		}

		seq, err := s.invoiceRepo.CountByDeal(ctx, deal.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count invoices for deal %s: %w", deal.ID, err)
		}

		batch = append(batch, domain.Invoice{
			DealID:          deal.ID,
			InvoiceNumber:   buildInvoiceNumber(deal.ID, issueDate, int(seq)+1),
			Amount:          commission.RoundCurrency(*deal.MonthlyValue),
			IssueDate:       issueDate,
			DueDate:         dueDate,
			Status:          domain.InvoiceStatusPending,
			IsRecurring:     true,
			RecurrenceMonth: &month,
			RecurrenceYear:  &year,
		})
	}

	// The batch commits or fails as a whole, so no period is ever half-billed.
	if err := s.invoiceRepo.CreateBatch(ctx, batch); err != nil {
		if isUniqueViolation(err) {
			// A concurrent run billed part of this period; nothing was
			// committed here, the next cycle picks up the remainder.
			summary.Errors = append(summary.Errors, "period already billed by a concurrent run")
		} else {
			return nil, fmt.Errorf("failed to insert invoices: %w", err)
		}
	} else {
		summary.InvoicesCreated = len(batch)
	}

	s.logger.Info("recurring invoice run complete",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("invoices_created", summary.InvoicesCreated),
		zap.Int("errors", len(summary.Errors)))

	if s.auditService != nil {
		entry := LogEntry{
			Action:     domain.AuditActionInvoiceRun,
			EntityType: "invoice_run",
			Metadata: map[string]interface{}{
				"month":           month,
				"year":            year,
				"invoicesCreated": summary.InvoicesCreated,
				"errors":          summary.Errors,
			},
		}
		if err := s.auditService.Log(ctx, nil, entry); err != nil {
			s.logger.Warn("failed to write invoice run audit entry", zap.Error(err))
		}
	}

	return summary, nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

func (s *InvoiceService) List(ctx context.Context, page, pageSize int, filters *repository.InvoiceFilters) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}

	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
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

func (s *InvoiceService) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]domain.InvoiceDTO, error) {
	invoices, err := s.invoiceRepo.ListByDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deal invoices: %w", err)
	}
	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
	}
	return dtos, nil
}

// MarkPaid records payment of a pending or overdue invoice
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status != domain.InvoiceStatusPending && invoice.Status != domain.InvoiceStatusOverdue {
		return nil, fmt.Errorf("%w: invoice is %s", ErrInvalidStatusTransition, invoice.Status)
	}

	now := time.Now()
	invoice.Status = domain.InvoiceStatusPaid
	invoice.PaidAt = &now

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	s.auditStatus(ctx, invoice)

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// Cancel voids an unpaid invoice
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status == domain.InvoiceStatusPaid || invoice.Status == domain.InvoiceStatusCancelled {
		return nil, fmt.Errorf("%w: invoice is %s", ErrInvalidStatusTransition, invoice.Status)
	}

	invoice.Status = domain.InvoiceStatusCancelled

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to cancel invoice: %w", err)
	}

	s.auditStatus(ctx, invoice)

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// SweepOverdue flags pending invoices whose due date has passed
func (s *InvoiceService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.invoiceRepo.ListOverdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue invoices: %w", err)
	}

	flagged := 0
	for i := range overdue {
		overdue[i].Status = domain.InvoiceStatusOverdue
		if err := s.invoiceRepo.Update(ctx, &overdue[i]); err != nil {
			s.logger.Warn("failed to flag overdue invoice",
				zap.String("invoice_id", overdue[i].ID.String()),
				zap.Error(err))
			continue
		}
		flagged++
	}

	if flagged > 0 {
		s.logger.Info("overdue sweep complete", zap.Int("flagged", flagged))
	}
	return flagged, nil
}

func (s *InvoiceService) auditStatus(ctx context.Context, invoice *domain.Invoice) {
	if s.auditService == nil {
		return
	}
	entry := LogEntry{
		Action:     domain.AuditActionStatusChange,
		EntityType: "invoice",
		EntityID:   &invoice.ID,
		EntityName: invoice.InvoiceNumber,
		NewValues:  mapper.ToInvoiceDTO(invoice),
	}
	if err := s.auditService.Log(ctx, nil, entry); err != nil {
		s.logger.Warn("failed to write invoice audit entry", zap.Error(err))
	}
}
