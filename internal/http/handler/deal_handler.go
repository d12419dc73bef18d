package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/repository"
	"github.com/vendaflow/crm-api/internal/service"
)

type DealHandler struct {
	dealService       *service.DealService
	closingService    *service.ClosingService
	commissionService *service.CommissionService
	invoiceService    *service.InvoiceService
	logger            *zap.Logger
}

func NewDealHandler(
	dealService *service.DealService,
	closingService *service.ClosingService,
	commissionService *service.CommissionService,
	invoiceService *service.InvoiceService,
	logger *zap.Logger,
) *DealHandler {
	return &DealHandler{
		dealService:       dealService,
		closingService:    closingService,
		commissionService: commissionService,
		invoiceService:    invoiceService,
		logger:            logger,
	}
}

func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.DealFilters{}

	if s := r.URL.Query().Get("stage"); s != "" {
		stage := domain.DealStage(s)
		filters.Stage = &stage
	}
	if dt := r.URL.Query().Get("dealType"); dt != "" {
		dealType := domain.DealType(dt)
		filters.DealType = &dealType
	}
	if o := r.URL.Query().Get("ownerId"); o != "" {
		filters.OwnerID = &o
	}
	if s := r.URL.Query().Get("sdrId"); s != "" {
		filters.SdrID = &s
	}
	if c := r.URL.Query().Get("closerId"); c != "" {
		filters.CloserID = &c
	}
	if minVal := r.URL.Query().Get("minValue"); minVal != "" {
		if v, err := strconv.ParseFloat(minVal, 64); err == nil {
			filters.MinValue = &v
		}
	}
	if maxVal := r.URL.Query().Get("maxValue"); maxVal != "" {
		if v, err := strconv.ParseFloat(maxVal, 64); err == nil {
			filters.MaxValue = &v
		}
	}
	if ca := r.URL.Query().Get("createdAfter"); ca != "" {
		if t, err := time.Parse("2006-01-02", ca); err == nil {
			filters.CreatedAfter = &t
		}
	}
	if cb := r.URL.Query().Get("createdBefore"); cb != "" {
		if t, err := time.Parse("2006-01-02", cb); err == nil {
			filters.CreatedBefore = &t
		}
	}
	if cla := r.URL.Query().Get("closeAfter"); cla != "" {
		if t, err := time.Parse("2006-01-02", cla); err == nil {
			filters.CloseAfter = &t
		}
	}
	if clb := r.URL.Query().Get("closeBefore"); clb != "" {
		if t, err := time.Parse("2006-01-02", clb); err == nil {
			filters.CloseBefore = &t
		}
	}
	if q := r.URL.Query().Get("q"); q != "" {
		filters.SearchQuery = &q
	}

	sortBy := repository.DealSortByCreatedDesc
	if s := r.URL.Query().Get("sort"); s != "" {
		sortBy = repository.DealSortOption(s)
	}

	result, err := h.dealService.List(r.Context(), page, pageSize, filters, sortBy)
	if err != nil {
		h.logger.Error("failed to list deals", zap.Error(err))
		respondServiceError(w, err, "Failed to list deals")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	deal, err := h.dealService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create deal", zap.Error(err))
		respondServiceError(w, err, "Failed to create deal")
		return
	}

	respondJSON(w, http.StatusCreated, deal)
}

func (h *DealHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	deal, err := h.dealService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

func (h *DealHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.UpdateDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	deal, err := h.dealService.Update(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update deal", zap.Error(err), zap.String("deal_id", id.String()))
		respondServiceError(w, err, "Failed to update deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	if err := h.dealService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete deal")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// MoveStage moves a deal through the funnel. Winning a deal goes through
// the close endpoint instead.
func (h *DealHandler) MoveStage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.MoveDealStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	deal, err := h.dealService.MoveStage(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err, "Failed to move deal stage")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

// Close wins a deal: stage move, commissions, and optional first invoice.
func (h *DealHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	var req domain.CloseDealRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := h.closingService.CloseDeal(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to close deal", zap.Error(err), zap.String("deal_id", id.String()))
		respondServiceError(w, err, "Failed to close deal")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *DealHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	deal, err := h.dealService.ReopenDeal(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to reopen deal")
		return
	}

	respondJSON(w, http.StatusOK, deal)
}

func (h *DealHandler) GetCommissions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	commissions, err := h.commissionService.ListByDeal(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to list deal commissions")
		return
	}

	respondJSON(w, http.StatusOK, commissions)
}

func (h *DealHandler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid deal ID")
		return
	}

	invoices, err := h.invoiceService.ListByDeal(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to list deal invoices")
		return
	}

	respondJSON(w, http.StatusOK, invoices)
}
