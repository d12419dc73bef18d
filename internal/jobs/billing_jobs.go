package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/config"
	"github.com/vendaflow/crm-api/internal/service"
)

// RegisterBillingJobs wires the recurring invoice run and the overdue sweep
// into the scheduler according to configuration.
func RegisterBillingJobs(s *Scheduler, cfg *config.JobsConfig, invoiceService *service.InvoiceService, logger *zap.Logger) error {
	if cfg.RecurringInvoicesEnabled {
		err := s.AddJob("recurring_invoices", cfg.RecurringInvoicesCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.TimeoutDuration())
			defer cancel()

			summary, err := invoiceService.GenerateRecurring(ctx, time.Now())
			if err != nil {
				logger.Error("recurring invoice job failed", zap.Error(err))
				return
			}
			logger.Info("recurring invoice job finished",
				zap.Int("invoices_created", summary.InvoicesCreated),
				zap.Int("errors", len(summary.Errors)))
		})
		if err != nil {
			return err
		}
	}

	if cfg.OverdueSweepEnabled {
		err := s.AddJob("overdue_sweep", cfg.OverdueSweepCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.TimeoutDuration())
			defer cancel()

			flagged, err := invoiceService.SweepOverdue(ctx, time.Now())
			if err != nil {
				logger.Error("overdue sweep job failed", zap.Error(err))
				return
			}
			if flagged > 0 {
				logger.Info("overdue sweep job finished", zap.Int("flagged", flagged))
			}
		})
		if err != nil {
			return err
		}
	}

	return nil
}
