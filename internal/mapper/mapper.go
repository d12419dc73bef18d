// Package mapper converts domain models to API DTOs
package mapper

import (
	"time"

	"github.com/vendaflow/crm-api/internal/domain"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ToDealDTO(deal *domain.Deal) domain.DealDTO {
	return domain.DealDTO{
		ID:                     deal.ID,
		Title:                  deal.Title,
		Description:            deal.Description,
		DealType:               deal.DealType,
		Stage:                  deal.Stage,
		Probability:            deal.Probability,
		Value:                  deal.Value,
		MonthlyValue:           deal.MonthlyValue,
		ContractDurationMonths: deal.ContractDurationMonths,
		Currency:               deal.Currency,
		OwnerID:                deal.OwnerID,
		SdrID:                  deal.SdrID,
		CloserID:               deal.CloserID,
		ExpectedCloseDate:      deal.ExpectedCloseDate,
		ActualCloseDate:        deal.ActualCloseDate,
		LossReason:             deal.LossReason,
		LossNotes:              deal.LossNotes,
		LossCompetitor:         deal.LossCompetitor,
		MonthlyHours:           deal.MonthlyHours,
		HoursConsumed:          deal.HoursConsumed,
		HoursRollover:          deal.HoursRollover,
		CreatedAt:              formatTime(deal.CreatedAt),
		UpdatedAt:              formatTime(deal.UpdatedAt),
	}
}

func ToCommissionDTO(c *domain.Commission) domain.CommissionDTO {
	return domain.CommissionDTO{
		ID:             c.ID,
		DealID:         c.DealID,
		UserID:         c.UserID,
		CommissionType: c.CommissionType,
		BaseValue:      c.BaseValue,
		Percentage:     c.Percentage,
		Amount:         c.Amount,
		Status:         c.Status,
		ApprovedAt:     c.ApprovedAt,
		PaidAt:         c.PaidAt,
		CreatedAt:      formatTime(c.CreatedAt),
	}
}

func ToCommissionTierDTO(t *domain.CommissionTier) domain.CommissionTierDTO {
	return domain.CommissionTierDTO{
		ID:         t.ID,
		MinValue:   t.MinValue,
		MaxValue:   t.MaxValue,
		Percentage: t.Percentage,
	}
}

func ToCommissionRuleDTO(rule *domain.CommissionRule) domain.CommissionRuleDTO {
	tiers := make([]domain.CommissionTierDTO, len(rule.Tiers))
	for i := range rule.Tiers {
		tiers[i] = ToCommissionTierDTO(&rule.Tiers[i])
	}
	return domain.CommissionRuleDTO{
		ID:             rule.ID,
		Name:           rule.Name,
		CommissionType: rule.CommissionType,
		Role:           rule.Role,
		DealType:       rule.DealType,
		Percentage:     rule.Percentage,
		IsTiered:       rule.IsTiered,
		Priority:       rule.Priority,
		IsActive:       rule.IsActive,
		Tiers:          tiers,
		CreatedAt:      formatTime(rule.CreatedAt),
	}
}

func ToInvoiceDTO(inv *domain.Invoice) domain.InvoiceDTO {
	return domain.InvoiceDTO{
		ID:              inv.ID,
		DealID:          inv.DealID,
		InvoiceNumber:   inv.InvoiceNumber,
		Amount:          inv.Amount,
		IssueDate:       inv.IssueDate,
		DueDate:         inv.DueDate,
		Status:          inv.Status,
		IsRecurring:     inv.IsRecurring,
		RecurrenceMonth: inv.RecurrenceMonth,
		RecurrenceYear:  inv.RecurrenceYear,
		PaidAt:          inv.PaidAt,
		CreatedAt:       formatTime(inv.CreatedAt),
	}
}

func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          log.ID,
		UserID:      log.UserID,
		UserEmail:   log.UserEmail,
		UserName:    log.UserName,
		Action:      log.Action,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		EntityName:  log.EntityName,
		OldValues:   log.OldValues,
		NewValues:   log.NewValues,
		Changes:     log.Changes,
		Metadata:    log.Metadata,
		PerformedAt: log.PerformedAt,
	}
}
