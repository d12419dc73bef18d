package handler

import (
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

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.InvoiceFilters{}

	if d := r.URL.Query().Get("dealId"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			filters.DealID = &id
		}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.InvoiceStatus(s)
		filters.Status = &status
	}
	if rec := r.URL.Query().Get("recurring"); rec != "" {
		isRecurring := rec == "true"
		filters.IsRecurring = &isRecurring
	}

	result, err := h.invoiceService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		respondServiceError(w, err, "Failed to list invoices")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.MarkPaid(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to mark invoice paid")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.Cancel(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to cancel invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// GenerateRecurring triggers a recurring billing run for the current month.
// The scheduled job runs the same code path; this endpoint exists for
// manual reruns and backfills.
func (h *InvoiceHandler) GenerateRecurring(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if p := r.URL.Query().Get("period"); p != "" {
		parsed, err := time.Parse("2006-01", p)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid period, expected YYYY-MM")
			return
		}
		now = parsed
	}

	summary, err := h.invoiceService.GenerateRecurring(r.Context(), now)
	if err != nil {
		h.logger.Error("recurring invoice run failed", zap.Error(err))
		respondServiceError(w, err, "Failed to generate recurring invoices")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}
