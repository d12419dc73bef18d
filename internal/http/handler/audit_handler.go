package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/repository"
	"github.com/vendaflow/crm-api/internal/service"
)

type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 50
	}

	filters := &repository.AuditLogFilters{}
	if et := r.URL.Query().Get("entityType"); et != "" {
		filters.EntityType = &et
	}
	if eid := r.URL.Query().Get("entityId"); eid != "" {
		filters.EntityID = &eid
	}
	if u := r.URL.Query().Get("userId"); u != "" {
		filters.UserID = &u
	}
	if a := r.URL.Query().Get("action"); a != "" {
		filters.Action = &a
	}

	result, err := h.auditService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		respondServiceError(w, err, "Failed to list audit logs")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
