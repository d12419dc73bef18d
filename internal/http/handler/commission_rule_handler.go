package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/service"
)

type CommissionRuleHandler struct {
	ruleService *service.CommissionRuleService
	logger      *zap.Logger
}

func NewCommissionRuleHandler(ruleService *service.CommissionRuleService, logger *zap.Logger) *CommissionRuleHandler {
	return &CommissionRuleHandler{
		ruleService: ruleService,
		logger:      logger,
	}
}

func (h *CommissionRuleHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	rules, err := h.ruleService.List(r.Context(), includeInactive)
	if err != nil {
		h.logger.Error("failed to list commission rules", zap.Error(err))
		respondServiceError(w, err, "Failed to list commission rules")
		return
	}

	respondJSON(w, http.StatusOK, rules)
}

func (h *CommissionRuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCommissionRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	rule, err := h.ruleService.Create(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create commission rule", zap.Error(err))
		respondServiceError(w, err, "Failed to create commission rule")
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

func (h *CommissionRuleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid rule ID")
		return
	}

	rule, err := h.ruleService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err, "Failed to get commission rule")
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (h *CommissionRuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid rule ID")
		return
	}

	var req domain.UpdateCommissionRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	rule, err := h.ruleService.Update(r.Context(), id, &req)
	if err != nil {
		h.logger.Error("failed to update commission rule", zap.Error(err), zap.String("rule_id", id.String()))
		respondServiceError(w, err, "Failed to update commission rule")
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (h *CommissionRuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid rule ID")
		return
	}

	if err := h.ruleService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err, "Failed to delete commission rule")
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
