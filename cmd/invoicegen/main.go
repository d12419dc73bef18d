// Command invoicegen runs one recurring invoice generation cycle and exits.
// It exists for manual reruns and cron environments that cannot host the
// in-process scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/config"
	"github.com/vendaflow/crm-api/internal/database"
	"github.com/vendaflow/crm-api/internal/logger"
	"github.com/vendaflow/crm-api/internal/repository"
	"github.com/vendaflow/crm-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	period := flag.String("period", "", "billing period as YYYY-MM (default: current month)")
	sweep := flag.Bool("sweep-overdue", false, "also flag overdue invoices")
	flag.Parse()

	now := time.Now()
	if *period != "" {
		parsed, err := time.Parse("2006-01", *period)
		if err != nil {
			return fmt.Errorf("invalid period %q, expected YYYY-MM", *period)
		}
		now = parsed
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	invoiceRepo := repository.NewInvoiceRepository(db)
	dealRepo := repository.NewDealRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	auditService := service.NewAuditLogService(auditRepo, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, dealRepo, auditService, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Jobs.TimeoutDuration())
	defer cancel()

	summary, err := invoiceService.GenerateRecurring(ctx, now)
	if err != nil {
		return fmt.Errorf("recurring invoice run failed: %w", err)
	}

	log.Info("invoice generation complete",
		zap.Int("invoices_created", summary.InvoicesCreated),
		zap.Strings("errors", summary.Errors))

	if *sweep {
		flagged, err := invoiceService.SweepOverdue(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("overdue sweep failed: %w", err)
		}
		log.Info("overdue sweep complete", zap.Int("flagged", flagged))
	}

	return nil
}
