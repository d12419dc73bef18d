package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// DealType classifies how a deal is billed
type DealType string

const (
	DealTypeRetainer DealType = "retainer"
	DealTypeProject  DealType = "project"
)

// IsValid checks if the DealType is a valid enum value
func (dt DealType) IsValid() bool {
	switch dt {
	case DealTypeRetainer, DealTypeProject:
		return true
	}
	return false
}

// DealStage represents the stage of a deal in the sales funnel
type DealStage string

const (
	DealStageLead        DealStage = "lead"
	DealStageQualified   DealStage = "qualified"
	DealStageProposal    DealStage = "proposal"
	DealStageNegotiation DealStage = "negotiation"
	DealStageClosedWon   DealStage = "closed_won"
	DealStageClosedLost  DealStage = "closed_lost"
)

// IsValid checks if the DealStage is a valid enum value
func (ds DealStage) IsValid() bool {
	switch ds {
	case DealStageLead, DealStageQualified, DealStageProposal,
		DealStageNegotiation, DealStageClosedWon, DealStageClosedLost:
		return true
	}
	return false
}

// IsTerminal reports whether the stage closes the funnel
func (ds DealStage) IsTerminal() bool {
	return ds == DealStageClosedWon || ds == DealStageClosedLost
}

// LossReason categorizes why a deal was lost
type LossReason string

const (
	LossReasonPrice      LossReason = "price"
	LossReasonTiming     LossReason = "timing"
	LossReasonCompetitor LossReason = "competitor"
	LossReasonNoBudget   LossReason = "no_budget"
	LossReasonNoFit      LossReason = "no_fit"
	LossReasonOther      LossReason = "other"
)

// IsValid checks if the LossReason is a valid enum value
func (lr LossReason) IsValid() bool {
	switch lr {
	case LossReasonPrice, LossReasonTiming, LossReasonCompetitor,
		LossReasonNoBudget, LossReasonNoFit, LossReasonOther:
		return true
	}
	return false
}

// Deal represents a sales opportunity in the pipeline
type Deal struct {
	BaseModel
	Title                  string       `gorm:"type:varchar(200);not null"`
	Description            string       `gorm:"type:text"`
	DealType               DealType     `gorm:"type:varchar(20);not null;default:'project';column:deal_type;index"`
	Stage                  DealStage    `gorm:"type:varchar(50);not null;default:'lead';index"`
	Probability            int          `gorm:"type:int;not null;default:0"`
	Value                  float64      `gorm:"type:decimal(15,2);not null;default:0"`
	MonthlyValue           *float64     `gorm:"type:decimal(15,2);column:monthly_value"`
	ContractDurationMonths *int         `gorm:"column:contract_duration_months"`
	Currency               string       `gorm:"type:varchar(3);not null;default:'BRL'"`
	OwnerID                string       `gorm:"type:varchar(100);not null;column:owner_id;index"`
	SdrID                  *string      `gorm:"type:varchar(100);column:sdr_id"`
	CloserID               *string      `gorm:"type:varchar(100);column:closer_id"`
	ExpectedCloseDate      *time.Time   `gorm:"type:date;column:expected_close_date"`
	ActualCloseDate        *time.Time   `gorm:"type:date;column:actual_close_date"`
	LossReason             *LossReason  `gorm:"type:varchar(50);column:loss_reason"`
	LossNotes              string       `gorm:"type:text;column:loss_notes"`
	LossCompetitor         string       `gorm:"type:varchar(200);column:loss_competitor"`
	MonthlyHours           *float64     `gorm:"type:decimal(10,2);column:monthly_hours"`
	HoursConsumed          float64      `gorm:"type:decimal(10,2);not null;default:0;column:hours_consumed"`
	HoursRollover          bool         `gorm:"not null;default:false;column:hours_rollover"`
	Commissions            []Commission `gorm:"foreignKey:DealID"`
	Invoices               []Invoice    `gorm:"foreignKey:DealID"`
}

// IsRetainer reports whether the deal bills monthly
func (d *Deal) IsRetainer() bool {
	return d.DealType == DealTypeRetainer
}

// OwnedBy reports whether the given user owns the deal for permission
// purposes. Assigning a closer removes the SDR's edit rights.
func (d *Deal) OwnedBy(userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	if d.CloserID != nil && *d.CloserID == userID {
		return true
	}
	if d.CloserID == nil && d.SdrID != nil && *d.SdrID == userID {
		return true
	}
	return false
}

// ContractExpired reports whether the retainer contract has run out at the
// given instant. Deals without a close date or duration never expire.
func (d *Deal) ContractExpired(now time.Time) bool {
	if d.ActualCloseDate == nil || d.ContractDurationMonths == nil {
		return false
	}
	return d.ActualCloseDate.AddDate(0, *d.ContractDurationMonths, 0).Before(now)
}

// CommissionType identifies what a commission rewards
type CommissionType string

const (
	CommissionTypeQualification CommissionType = "qualification"
	CommissionTypeClosing       CommissionType = "closing"
	CommissionTypeDelivery      CommissionType = "delivery"
	CommissionTypeReferral      CommissionType = "referral"
)

// IsValid checks if the CommissionType is a valid enum value
func (ct CommissionType) IsValid() bool {
	switch ct {
	case CommissionTypeQualification, CommissionTypeClosing,
		CommissionTypeDelivery, CommissionTypeReferral:
		return true
	}
	return false
}

// CommissionRule is a configuration row selecting how a commission is
// computed. A nil Role or DealType acts as a wildcard. Tiered rules ignore
// Percentage and use the tier schedule instead. Rules are looked up by the
// engine, never mutated by it.
type CommissionRule struct {
	BaseModel
	Name           string           `gorm:"type:varchar(200);not null"`
	CommissionType CommissionType   `gorm:"type:varchar(50);not null;column:commission_type;index"`
	Role           *UserRoleType    `gorm:"type:varchar(50)"`
	DealType       *DealType        `gorm:"type:varchar(20);column:deal_type"`
	Percentage     float64          `gorm:"type:decimal(7,4);not null;default:0"`
	IsTiered       bool             `gorm:"not null;default:false;column:is_tiered"`
	Priority       int              `gorm:"not null;default:100"`
	IsActive       bool             `gorm:"not null;default:true;column:is_active;index"`
	Tiers          []CommissionTier `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"`
}

// Matches reports whether the rule applies to the given role and deal type.
// Nil filter fields match anything.
func (r *CommissionRule) Matches(role UserRoleType, dealType DealType) bool {
	if r.Role != nil && *r.Role != role {
		return false
	}
	if r.DealType != nil && *r.DealType != dealType {
		return false
	}
	return true
}

// Specificity counts how many filter fields the rule pins down. Used as a
// resolver tie-break so narrower rules beat wildcards at equal priority.
func (r *CommissionRule) Specificity() int {
	n := 0
	if r.DealType != nil {
		n++
	}
	if r.Role != nil {
		n++
	}
	return n
}

// CommissionTier is one bracket of a tiered rule. A nil MaxValue means the
// bracket is unbounded.
type CommissionTier struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	RuleID     uuid.UUID `gorm:"type:uuid;not null;index;column:rule_id"`
	MinValue   float64   `gorm:"type:decimal(15,2);not null;column:min_value"`
	MaxValue   *float64  `gorm:"type:decimal(15,2);column:max_value"`
	Percentage float64   `gorm:"type:decimal(7,4);not null"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// CommissionStatus tracks a commission through its payout lifecycle
type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusApproved  CommissionStatus = "approved"
	CommissionStatusPaid      CommissionStatus = "paid"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// IsValid checks if the CommissionStatus is a valid enum value
func (cs CommissionStatus) IsValid() bool {
	switch cs {
	case CommissionStatusPending, CommissionStatusApproved,
		CommissionStatusPaid, CommissionStatusCancelled:
		return true
	}
	return false
}

// IsProcessed reports whether the commission counts against the
// one-closing-commission-per-deal guarantee. Pending and cancelled rows do
// not block reprocessing.
func (cs CommissionStatus) IsProcessed() bool {
	return cs == CommissionStatusApproved || cs == CommissionStatusPaid
}

// Commission is a computed, persisted commission instance.
// Percentage holds the effective rate: for tiered rules this is the blended
// rate (amount / base * 100), recomputed at write time and kept for display
// only, never read back as a source of truth.
type Commission struct {
	BaseModel
	DealID         uuid.UUID        `gorm:"type:uuid;not null;index;column:deal_id"`
	Deal           *Deal            `gorm:"foreignKey:DealID"`
	UserID         string           `gorm:"type:varchar(100);not null;column:user_id;index"`
	CommissionType CommissionType   `gorm:"type:varchar(50);not null;column:commission_type"`
	BaseValue      float64          `gorm:"type:decimal(15,2);not null;column:base_value"`
	Percentage     float64          `gorm:"type:decimal(7,4);not null"`
	Amount         float64          `gorm:"type:decimal(15,2);not null"`
	Status         CommissionStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ApprovedAt     *time.Time       `gorm:"column:approved_at"`
	PaidAt         *time.Time       `gorm:"column:paid_at"`
}

// InvoiceStatus tracks an invoice through its billing lifecycle
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the InvoiceStatus is a valid enum value
func (is InvoiceStatus) IsValid() bool {
	switch is {
	case InvoiceStatusPending, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice is a billing document for a deal. Recurring invoices carry the
// (month, year) pair identifying their billing cycle; that pair is the
// duplicate-prevention key for the recurring generator.
type Invoice struct {
	BaseModel
	DealID          uuid.UUID     `gorm:"type:uuid;not null;index;column:deal_id"`
	Deal            *Deal         `gorm:"foreignKey:DealID"`
	InvoiceNumber   string        `gorm:"type:varchar(50);not null;unique;column:invoice_number"`
	Amount          float64       `gorm:"type:decimal(15,2);not null"`
	IssueDate       time.Time     `gorm:"type:date;not null;column:issue_date"`
	DueDate         time.Time     `gorm:"type:date;not null;column:due_date"`
	Status          InvoiceStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	IsRecurring     bool          `gorm:"not null;default:false;column:is_recurring"`
	RecurrenceMonth *int          `gorm:"column:recurrence_month"`
	RecurrenceYear  *int          `gorm:"column:recurrence_year"`
	PaidAt          *time.Time    `gorm:"column:paid_at"`
}

// UserRoleType represents a role a user can have
type UserRoleType string

const (
	RoleAdmin   UserRoleType = "admin"
	RoleCloser  UserRoleType = "closer"
	RoleSdr     UserRoleType = "sdr"
	RoleFinance UserRoleType = "finance"
	RoleViewer  UserRoleType = "viewer"
)

// IsValid checks if the UserRoleType is a valid enum value
func (rt UserRoleType) IsValid() bool {
	switch rt {
	case RoleAdmin, RoleCloser, RoleSdr, RoleFinance, RoleViewer:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID          string         `gorm:"type:varchar(100);primaryKey" json:"id"`
	Email       string         `gorm:"type:varchar(255);not null;unique" json:"email"`
	DisplayName string         `gorm:"type:varchar(200);not null;column:name" json:"displayName"`
	Roles       pq.StringArray `gorm:"type:text[];not null" json:"roles"`
	IsActive    bool           `gorm:"not null;default:true;column:is_active" json:"isActive"`
	LastLoginAt *time.Time     `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// RoleTypes returns the user's roles as typed values, dropping unknown entries
func (u *User) RoleTypes() []UserRoleType {
	roles := make([]UserRoleType, 0, len(u.Roles))
	for _, r := range u.Roles {
		rt := UserRoleType(r)
		if rt.IsValid() {
			roles = append(roles, rt)
		}
	}
	return roles
}

// HasRole checks if the user carries a specific role
func (u *User) HasRole(role UserRoleType) bool {
	for _, r := range u.Roles {
		if UserRoleType(r) == role {
			return true
		}
	}
	return false
}

// UserRole represents an explicit role assignment for a user
type UserRole struct {
	ID        uuid.UUID    `gorm:"type:uuid;primary_key"`
	UserID    string       `gorm:"type:varchar(100);not null;index;column:user_id"`
	User      *User        `gorm:"foreignKey:UserID"`
	Role      UserRoleType `gorm:"type:varchar(50);not null"`
	GrantedBy string       `gorm:"type:varchar(100);column:granted_by"`
	GrantedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;column:granted_at"`
	ExpiresAt *time.Time   `gorm:"column:expires_at"`
	IsActive  bool         `gorm:"not null;default:true;column:is_active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate       AuditAction = "create"
	AuditActionUpdate       AuditAction = "update"
	AuditActionDelete       AuditAction = "delete"
	AuditActionStageChange  AuditAction = "stage_change"
	AuditActionDealClosed   AuditAction = "deal_closed"
	AuditActionInvoiceRun   AuditAction = "invoice_run"
	AuditActionStatusChange AuditAction = "status_change"
	AuditActionRoleAssign   AuditAction = "role_assign"
	AuditActionRoleRemove   AuditAction = "role_remove"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key"`
	UserID      string      `gorm:"type:varchar(100);column:user_id"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email"`
	UserName    string      `gorm:"type:varchar(200);column:user_name"`
	Action      AuditAction `gorm:"type:varchar(50);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id"`
	EntityName  string      `gorm:"type:varchar(200);column:entity_name"`
	OldValues   string      `gorm:"type:jsonb;column:old_values"`
	NewValues   string      `gorm:"type:jsonb;column:new_values"`
	Changes     string      `gorm:"type:jsonb"`
	Metadata    string      `gorm:"type:jsonb"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	PerformedAt time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP;column:performed_at"`
	CreatedAt   time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"`
}
