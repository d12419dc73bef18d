package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/auth"
	"github.com/vendaflow/crm-api/internal/config"
	"github.com/vendaflow/crm-api/internal/database"
	"github.com/vendaflow/crm-api/internal/http/handler"
	"github.com/vendaflow/crm-api/internal/http/middleware"
	"github.com/vendaflow/crm-api/internal/http/router"
	"github.com/vendaflow/crm-api/internal/jobs"
	"github.com/vendaflow/crm-api/internal/logger"
	"github.com/vendaflow/crm-api/internal/pipeline"
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
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting application",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	dealRepo := repository.NewDealRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	ruleRepo := repository.NewCommissionRuleRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	probabilities := pipeline.DefaultStageProbabilities()
	auditService := service.NewAuditLogService(auditRepo, log)
	dealService := service.NewDealService(dealRepo, auditService, probabilities, log)
	closingService := service.NewClosingService(dealRepo, commissionRepo, ruleRepo, invoiceRepo, userRepo, auditService, probabilities, log, db)
	commissionService := service.NewCommissionService(commissionRepo, auditService, log)
	ruleService := service.NewCommissionRuleService(ruleRepo, auditService, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, dealRepo, auditService, log)

	// Auth
	tokenIssuer := auth.NewTokenIssuer(&cfg.Auth)
	authMiddleware := auth.NewMiddleware(tokenIssuer, userRepo, log)

	// Handlers
	authHandler := handler.NewAuthHandler(log)
	dealHandler := handler.NewDealHandler(dealService, closingService, commissionService, invoiceService, log)
	commissionHandler := handler.NewCommissionHandler(commissionService, log)
	ruleHandler := handler.NewCommissionRuleHandler(ruleService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, log)
	auditHandler := handler.NewAuditHandler(auditService, log)

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg, log, db,
		authMiddleware, rateLimiter,
		authHandler, dealHandler, commissionHandler, ruleHandler, invoiceHandler, auditHandler,
	)

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	if err := jobs.RegisterBillingJobs(scheduler, &cfg.Jobs, invoiceService, log); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
