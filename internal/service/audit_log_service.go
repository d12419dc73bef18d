package service

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vendaflow/crm-api/internal/auth"
	"github.com/vendaflow/crm-api/internal/domain"
	"github.com/vendaflow/crm-api/internal/mapper"
	"github.com/vendaflow/crm-api/internal/repository"
)

// AuditLogService handles audit logging operations
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

// NewAuditLogService creates a new audit log service
func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// LogEntry represents the input for creating an audit log entry
type LogEntry struct {
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	EntityName string
	OldValues  interface{}
	NewValues  interface{}
	Metadata   map[string]interface{}
}

// Log creates an audit log entry from context and request
func (s *AuditLogService) Log(ctx context.Context, r *http.Request, entry LogEntry) error {
	auditLog := &domain.AuditLog{
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		EntityName:  entry.EntityName,
		PerformedAt: time.Now(),
	}

	if userCtx, ok := auth.FromContext(ctx); ok && userCtx != nil {
		auditLog.UserID = userCtx.UserID
		auditLog.UserEmail = userCtx.Email
		auditLog.UserName = userCtx.DisplayName
	}

	if r != nil {
		auditLog.RequestID = r.Header.Get("X-Request-ID")
	}

	auditLog.OldValues = marshalOrNull(entry.OldValues)
	auditLog.NewValues = marshalOrNull(entry.NewValues)

	if entry.OldValues != nil && entry.NewValues != nil {
		changes := calculateChanges(entry.OldValues, entry.NewValues)
		auditLog.Changes = marshalOrNull(changes)
	} else {
		auditLog.Changes = "null"
	}

	if entry.Metadata != nil {
		auditLog.Metadata = marshalOrNull(entry.Metadata)
	} else {
		auditLog.Metadata = "null"
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

// List returns audit log entries with pagination
func (s *AuditLogService) List(ctx context.Context, page, pageSize int, filters *repository.AuditLogFilters) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}

	logs, total, err := s.auditRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
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

// marshalOrNull serializes a value, falling back to "null" so the JSONB
// column always receives valid JSON.
func marshalOrNull(v interface{}) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// calculateChanges produces a field-level diff between two values of the
// same shape, keyed by JSON field name.
func calculateChanges(oldValue, newValue interface{}) map[string]interface{} {
	changes := make(map[string]interface{})

	var oldMap, newMap map[string]interface{}
	if err := json.Unmarshal([]byte(marshalOrNull(oldValue)), &oldMap); err != nil {
		return changes
	}
	if err := json.Unmarshal([]byte(marshalOrNull(newValue)), &newMap); err != nil {
		return changes
	}

	for key, newVal := range newMap {
		oldVal, existed := oldMap[key]
		if !existed || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]interface{}{
				"old": oldVal,
				"new": newVal,
			}
		}
	}
	for key, oldVal := range oldMap {
		if _, exists := newMap[key]; !exists {
			changes[key] = map[string]interface{}{
				"old": oldVal,
				"new": nil,
			}
		}
	}
	return changes
}
