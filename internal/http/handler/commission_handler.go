package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/repository"
	"github.com/vendaflow/crm-api/internal/service"
)

type CommissionHandler struct {
	commissionService *service.CommissionService
	logger            *zap.Logger
}

func NewCommissionHandler(commissionService *service.CommissionService, logger *zap.Logger) *CommissionHandler {
	return &CommissionHandler{
		commissionService: commissionService,
		logger:            logger,
	}
}

func (h *CommissionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.CommissionFilters{}

	if d := r.URL.Query().Get("dealId"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			filters.DealID = &id
		}
	}
	if u := r.URL.Query().Get("userId"); u != "" {
		filters.UserID = &u
	}
	if t := r.URL.Query().Get("type"); t != "" {
		ct := domain.CommissionType(t)
		filters.CommissionType = &ct
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.CommissionStatus(s)
		filters.Status = &status
	}

	result, err := h.commissionService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list commissions", zap.Error(err))
		respondServiceError(w, err, "Failed to list commissions")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *CommissionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid commission ID")
		return
	}

	commission, err := h.commissionService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get commission")
		return
	}

	respondJSON(w, http.StatusOK, commission)
}

func (h *CommissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid commission ID")
		return
	}

	commission, err := h.commissionService.Approve(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to approve commission")
		return
	}

	respondJSON(w, http.StatusOK, commission)
}

func (h *CommissionHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid commission ID")
		return
	}

	commission, err := h.commissionService.MarkPaid(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to mark commission paid")
		return
	}

	respondJSON(w, http.StatusOK, commission)
}

func (h *CommissionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid commission ID")
		return
	}

	commission, err := h.commissionService.Cancel(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to cancel commission")
		return
	}

	respondJSON(w, http.StatusOK, commission)
}
