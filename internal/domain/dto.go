package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type DealDTO struct {
	ID                     uuid.UUID   `json:"id"`
	Title                  string      `json:"title"`
	Description            string      `json:"description,omitempty"`
	DealType               DealType    `json:"dealType"`
	Stage                  DealStage   `json:"stage"`
	Probability            int         `json:"probability"`
	Value                  float64     `json:"value"`
	MonthlyValue           *float64    `json:"monthlyValue,omitempty"`
	ContractDurationMonths *int        `json:"contractDurationMonths,omitempty"`
	Currency               string      `json:"currency"`
	OwnerID                string      `json:"ownerId"`
	SdrID                  *string     `json:"sdrId,omitempty"`
	CloserID               *string     `json:"closerId,omitempty"`
	ExpectedCloseDate      *time.Time  `json:"expectedCloseDate,omitempty"`
	ActualCloseDate        *time.Time  `json:"actualCloseDate,omitempty"`
	LossReason             *LossReason `json:"lossReason,omitempty"`
	LossNotes              string      `json:"lossNotes,omitempty"`
	LossCompetitor         string      `json:"lossCompetitor,omitempty"`
	MonthlyHours           *float64    `json:"monthlyHours,omitempty"`
	HoursConsumed          float64     `json:"hoursConsumed"`
	HoursRollover          bool        `json:"hoursRollover"`
	CreatedAt              string      `json:"createdAt"` // ISO 8601
	UpdatedAt              string      `json:"updatedAt"` // ISO 8601
}

type CommissionDTO struct {
	ID             uuid.UUID        `json:"id"`
	DealID         uuid.UUID        `json:"dealId"`
	UserID         string           `json:"userId"`
	CommissionType CommissionType   `json:"commissionType"`
	BaseValue      float64          `json:"baseValue"`
	Percentage     float64          `json:"percentage"`
	Amount         float64          `json:"amount"`
	Status         CommissionStatus `json:"status"`
	ApprovedAt     *time.Time       `json:"approvedAt,omitempty"`
	PaidAt         *time.Time       `json:"paidAt,omitempty"`
	CreatedAt      string           `json:"createdAt"`
}

type CommissionTierDTO struct {
	ID         uuid.UUID `json:"id"`
	MinValue   float64   `json:"minValue"`
	MaxValue   *float64  `json:"maxValue,omitempty"`
	Percentage float64   `json:"percentage"`
}

type CommissionRuleDTO struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	CommissionType CommissionType      `json:"commissionType"`
	Role           *UserRoleType       `json:"role,omitempty"`
	DealType       *DealType           `json:"dealType,omitempty"`
	Percentage     float64             `json:"percentage"`
	IsTiered       bool                `json:"isTiered"`
	Priority       int                 `json:"priority"`
	IsActive       bool                `json:"isActive"`
	Tiers          []CommissionTierDTO `json:"tiers,omitempty"`
	CreatedAt      string              `json:"createdAt"`
}

type InvoiceDTO struct {
	ID              uuid.UUID     `json:"id"`
	DealID          uuid.UUID     `json:"dealId"`
	InvoiceNumber   string        `json:"invoiceNumber"`
	Amount          float64       `json:"amount"`
	IssueDate       time.Time     `json:"issueDate"`
	DueDate         time.Time     `json:"dueDate"`
	Status          InvoiceStatus `json:"status"`
	IsRecurring     bool          `json:"isRecurring"`
	RecurrenceMonth *int          `json:"recurrenceMonth,omitempty"`
	RecurrenceYear  *int          `json:"recurrenceYear,omitempty"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
	CreatedAt       string        `json:"createdAt"`
}

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"userId,omitempty"`
	UserEmail   string      `json:"userEmail,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    *uuid.UUID  `json:"entityId,omitempty"`
	EntityName  string      `json:"entityName,omitempty"`
	OldValues   string      `json:"oldValues,omitempty"`
	NewValues   string      `json:"newValues,omitempty"`
	Changes     string      `json:"changes,omitempty"`
	Metadata    string      `json:"metadata,omitempty"`
	PerformedAt time.Time   `json:"performedAt"`
}

// Requests

type CreateDealRequest struct {
	Title                  string     `json:"title" validate:"required,max=200"`
	Description            string     `json:"description,omitempty"`
	DealType               DealType   `json:"dealType" validate:"required,oneof=retainer project"`
	Value                  float64    `json:"value" validate:"gte=0"`
	MonthlyValue           *float64   `json:"monthlyValue,omitempty" validate:"omitempty,gt=0"`
	ContractDurationMonths *int       `json:"contractDurationMonths,omitempty" validate:"omitempty,gt=0"`
	Currency               string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	OwnerID                string     `json:"ownerId" validate:"required"`
	SdrID                  *string    `json:"sdrId,omitempty"`
	CloserID               *string    `json:"closerId,omitempty"`
	ExpectedCloseDate      *time.Time `json:"expectedCloseDate,omitempty"`
	MonthlyHours           *float64   `json:"monthlyHours,omitempty" validate:"omitempty,gt=0"`
	HoursRollover          bool       `json:"hoursRollover,omitempty"`
}

type UpdateDealRequest struct {
	Title                  string     `json:"title" validate:"required,max=200"`
	Description            string     `json:"description,omitempty"`
	Value                  float64    `json:"value" validate:"gte=0"`
	MonthlyValue           *float64   `json:"monthlyValue,omitempty" validate:"omitempty,gt=0"`
	ContractDurationMonths *int       `json:"contractDurationMonths,omitempty" validate:"omitempty,gt=0"`
	Currency               string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	SdrID                  *string    `json:"sdrId,omitempty"`
	CloserID               *string    `json:"closerId,omitempty"`
	ExpectedCloseDate      *time.Time `json:"expectedCloseDate,omitempty"`
	MonthlyHours           *float64   `json:"monthlyHours,omitempty" validate:"omitempty,gt=0"`
	HoursRollover          *bool      `json:"hoursRollover,omitempty"`
}

// MoveDealStageRequest carries a stage move and the extra confirmation data
// the validator may require for terminal stages.
type MoveDealStageRequest struct {
	Stage          DealStage   `json:"stage" validate:"required"`
	LossReason     *LossReason `json:"lossReason,omitempty"`
	LossNotes      string      `json:"lossNotes,omitempty"`
	LossCompetitor string      `json:"lossCompetitor,omitempty"`
}

// CloseDealRequest finalizes a move into closed_won
type CloseDealRequest struct {
	ActualCloseDate       *time.Time `json:"actualCloseDate,omitempty"`
	StartRecurringBilling bool       `json:"startRecurringBilling,omitempty"`
}

// CloseDealResult summarizes the side effects of winning a deal
type CloseDealResult struct {
	Deal               DealDTO `json:"deal"`
	CommissionsCreated int     `json:"commissionsCreated"`
	InvoiceCreated     bool    `json:"invoiceCreated"`
}

type CreateCommissionRuleRequest struct {
	Name           string                `json:"name" validate:"required,max=200"`
	CommissionType CommissionType        `json:"commissionType" validate:"required,oneof=qualification closing delivery referral"`
	Role           *UserRoleType         `json:"role,omitempty" validate:"omitempty,oneof=admin closer sdr finance viewer"`
	DealType       *DealType             `json:"dealType,omitempty" validate:"omitempty,oneof=retainer project"`
	Percentage     float64               `json:"percentage" validate:"gte=0,lte=100"`
	IsTiered       bool                  `json:"isTiered,omitempty"`
	Priority       int                   `json:"priority,omitempty" validate:"gte=0"`
	Tiers          []CommissionTierInput `json:"tiers,omitempty" validate:"omitempty,dive"`
}

type CommissionTierInput struct {
	MinValue   float64  `json:"minValue" validate:"gte=0"`
	MaxValue   *float64 `json:"maxValue,omitempty" validate:"omitempty,gt=0"`
	Percentage float64  `json:"percentage" validate:"gte=0,lte=100"`
}

type UpdateCommissionRuleRequest struct {
	Name       string                `json:"name" validate:"required,max=200"`
	Percentage float64               `json:"percentage" validate:"gte=0,lte=100"`
	Priority   int                   `json:"priority,omitempty" validate:"gte=0"`
	IsActive   bool                  `json:"isActive"`
	Tiers      []CommissionTierInput `json:"tiers,omitempty" validate:"omitempty,dive"`
}

// RecurringRunSummary reports one recurring-invoice generation run
type RecurringRunSummary struct {
	InvoicesCreated int      `json:"invoicesCreated"`
	Errors          []string `json:"errors"`
}

// PaginatedResponse wraps list results with paging metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
