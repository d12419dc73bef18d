package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vendaflow/crm-api/internal/auth"
	"github.com/vendaflow/crm-api/internal/config"
	"github.com/vendaflow/crm-api/internal/database"
	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/http/handler"
	"github.com/vendaflow/crm-api/internal/http/middleware"
)

type Router struct {
	cfg               *config.Config
	logger            *zap.Logger
	db                *gorm.DB
	authMiddleware    *auth.Middleware
	rateLimiter       *middleware.RateLimiter
	authHandler       *handler.AuthHandler
	dealHandler       *handler.DealHandler
	commissionHandler *handler.CommissionHandler
	ruleHandler       *handler.CommissionRuleHandler
	invoiceHandler    *handler.InvoiceHandler
	auditHandler      *handler.AuditHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	dealHandler *handler.DealHandler,
	commissionHandler *handler.CommissionHandler,
	ruleHandler *handler.CommissionRuleHandler,
	invoiceHandler *handler.InvoiceHandler,
	auditHandler *handler.AuditHandler,
) *Router {
	return &Router{
		cfg:               cfg,
		logger:            logger,
		db:                db,
		authMiddleware:    authMiddleware,
		rateLimiter:       rateLimiter,
		authHandler:       authHandler,
		dealHandler:       dealHandler,
		commissionHandler: commissionHandler,
		ruleHandler:       ruleHandler,
		invoiceHandler:    invoiceHandler,
		auditHandler:      auditHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database readiness probe
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("database health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
		})
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Auth
			r.Get("/auth/me", rt.authHandler.Me)

			// Deals
			r.Route("/deals", func(r chi.Router) {
				r.Get("/", rt.dealHandler.List)
				r.Post("/", rt.dealHandler.Create)
				r.Get("/{id}", rt.dealHandler.GetByID)
				r.Put("/{id}", rt.dealHandler.Update)
				r.Delete("/{id}", rt.dealHandler.Delete)
				r.Post("/{id}/stage", rt.dealHandler.MoveStage)
				r.Post("/{id}/close", rt.dealHandler.Close)
				r.Post("/{id}/reopen", rt.dealHandler.Reopen)
				r.Get("/{id}/commissions", rt.dealHandler.GetCommissions)
				r.Get("/{id}/invoices", rt.dealHandler.GetInvoices)
			})

			// Commissions
			r.Route("/commissions", func(r chi.Router) {
				r.Get("/", rt.commissionHandler.List)
				r.Get("/{id}", rt.commissionHandler.GetByID)

				// Lifecycle changes are a finance concern
				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRoles(domain.RoleAdmin, domain.RoleFinance))
					r.Post("/{id}/approve", rt.commissionHandler.Approve)
					r.Post("/{id}/pay", rt.commissionHandler.MarkPaid)
					r.Post("/{id}/cancel", rt.commissionHandler.Cancel)
				})
			})

			// Commission rules (admin only)
			r.Route("/commission-rules", func(r chi.Router) {
				r.Get("/", rt.ruleHandler.List)
				r.Get("/{id}", rt.ruleHandler.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRoles(domain.RoleAdmin))
					r.Post("/", rt.ruleHandler.Create)
					r.Put("/{id}", rt.ruleHandler.Update)
					r.Delete("/{id}", rt.ruleHandler.Delete)
				})
			})

			// Invoices
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", rt.invoiceHandler.List)
				r.Get("/{id}", rt.invoiceHandler.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRoles(domain.RoleAdmin, domain.RoleFinance))
					r.Post("/{id}/pay", rt.invoiceHandler.MarkPaid)
					r.Post("/{id}/cancel", rt.invoiceHandler.Cancel)
					r.Post("/generate-recurring", rt.invoiceHandler.GenerateRecurring)
				})
			})

			// Audit logs (admin only)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRoles(domain.RoleAdmin))
				r.Get("/audit", rt.auditHandler.List)
			})
		})
	})

	return r
}
