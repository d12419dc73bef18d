package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendaflow/crm-api/internal/domain"
)

// wonRetainer inserts a closed-won retainer billing 10k/month for 12 months.
func wonRetainer(t *testing.T, env *testEnv, closeDate time.Time) *domain.Deal {
	t.Helper()
	return env.createDeal(t, func(d *domain.Deal) {
		d.DealType = domain.DealTypeRetainer
		d.Stage = domain.DealStageClosedWon
		d.Probability = 100
		d.MonthlyValue = floatPtr(10000)
		d.ContractDurationMonths = intPtr(12)
		d.Value = 120000
		d.ActualCloseDate = &closeDate
	})
}

func TestGenerateRecurring(t *testing.T) {
	closeDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	runAt := time.Date(2026, 4, 5, 9, 0, 0, 0, time.UTC)

	t.Run("bills each won retainer once for the period", func(t *testing.T) {
		env := newTestEnv(t)
		deal := wonRetainer(t, env, closeDate)

		summary, err := env.invoices.GenerateRecurring(context.Background(), runAt)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.InvoicesCreated)
		assert.Empty(t, summary.Errors)

		invoices, err := env.invoiceRepo.ListByDeal(context.Background(), deal.ID)
		require.NoError(t, err)
		require.Len(t, invoices, 1)

		inv := invoices[0]
		assert.Equal(t, fmt.Sprintf("INV-202604-%s-001", deal.ID.String()[:8]), inv.InvoiceNumber)
		assert.Equal(t, 10000.0, inv.Amount)
		assert.Equal(t, domain.InvoiceStatusPending, inv.Status)
		assert.True(t, inv.IsRecurring)
		assert.Equal(t, 4, *inv.RecurrenceMonth)
		assert.Equal(t, 2026, *inv.RecurrenceYear)
		assert.True(t, inv.IssueDate.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)), "issued on the 1st")
		assert.True(t, inv.DueDate.Equal(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)), "due on the 10th")
	})

	t.Run("rerunning the same period creates nothing", func(t *testing.T) {
		env := newTestEnv(t)
		deal := wonRetainer(t, env, closeDate)

		first, err := env.invoices.GenerateRecurring(context.Background(), runAt)
		require.NoError(t, err)
		assert.Equal(t, 1, first.InvoicesCreated)

		second, err := env.invoices.GenerateRecurring(context.Background(), runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, second.InvoicesCreated)

		invoices, err := env.invoiceRepo.ListByDeal(context.Background(), deal.ID)
		require.NoError(t, err)
		assert.Len(t, invoices, 1)
	})

	t.Run("a new period bills again with the next sequence", func(t *testing.T) {
		env := newTestEnv(t)
		deal := wonRetainer(t, env, closeDate)

		_, err := env.invoices.GenerateRecurring(context.Background(), runAt)
		require.NoError(t, err)
		summary, err := env.invoices.GenerateRecurring(context.Background(), runAt.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Equal(t, 1, summary.InvoicesCreated)

		invoices, err := env.invoiceRepo.ListByDeal(context.Background(), deal.ID)
		require.NoError(t, err)
		require.Len(t, invoices, 2)

		numbers := []string{invoices[0].InvoiceNumber, invoices[1].InvoiceNumber}
		assert.Contains(t, numbers, fmt.Sprintf("INV-202604-%s-001", deal.ID.String()[:8]))
		assert.Contains(t, numbers, fmt.Sprintf("INV-202605-%s-002", deal.ID.String()[:8]))
	})

	t.Run("expired contracts are skipped", func(t *testing.T) {
		env := newTestEnv(t)
		expired := wonRetainer(t, env, closeDate)
		require.NoError(t, env.db.Model(expired).Update("contract_duration_months", 2).Error)

		summary, err := env.invoices.GenerateRecurring(context.Background(), runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.InvoicesCreated)
	})

	t.Run("only won retainers are billed", func(t *testing.T) {
		env := newTestEnv(t)
		// Won project deal
		env.createDeal(t, func(d *domain.Deal) {
			d.Stage = domain.DealStageClosedWon
			d.ActualCloseDate = &closeDate
		})
		// Open retainer deal
		env.createDeal(t, func(d *domain.Deal) {
			d.DealType = domain.DealTypeRetainer
			d.MonthlyValue = floatPtr(5000)
			d.ContractDurationMonths = intPtr(6)
		})

		summary, err := env.invoices.GenerateRecurring(context.Background(), runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.InvoicesCreated)
	})
}

func TestInvoiceLifecycle(t *testing.T) {
	issue := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	createInvoice := func(t *testing.T, env *testEnv, status domain.InvoiceStatus) *domain.Invoice {
		t.Helper()
		deal := wonRetainer(t, env, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))
		inv := &domain.Invoice{
			DealID:        deal.ID,
			InvoiceNumber: fmt.Sprintf("INV-202604-%s-001", deal.ID.String()[:8]),
			Amount:        10000,
			IssueDate:     issue,
			DueDate:       issue.AddDate(0, 0, 9),
			Status:        status,
		}
		require.NoError(t, env.db.Create(inv).Error)
		return inv
	}

	t.Run("pending invoice can be paid", func(t *testing.T) {
		env := newTestEnv(t)
		inv := createInvoice(t, env, domain.InvoiceStatusPending)

		dto, err := env.invoices.MarkPaid(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPaid, dto.Status)
		assert.NotNil(t, dto.PaidAt)
	})

	t.Run("overdue invoice can be paid", func(t *testing.T) {
		env := newTestEnv(t)
		inv := createInvoice(t, env, domain.InvoiceStatusOverdue)

		dto, err := env.invoices.MarkPaid(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusPaid, dto.Status)
	})

	t.Run("paid invoice cannot be paid again", func(t *testing.T) {
		env := newTestEnv(t)
		inv := createInvoice(t, env, domain.InvoiceStatusPaid)

		_, err := env.invoices.MarkPaid(context.Background(), inv.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})

	t.Run("unpaid invoice can be cancelled", func(t *testing.T) {
		env := newTestEnv(t)
		inv := createInvoice(t, env, domain.InvoiceStatusPending)

		dto, err := env.invoices.Cancel(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusCancelled, dto.Status)
	})

	t.Run("paid invoice cannot be cancelled", func(t *testing.T) {
		env := newTestEnv(t)
		inv := createInvoice(t, env, domain.InvoiceStatusPaid)

		_, err := env.invoices.Cancel(context.Background(), inv.ID)
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	})
}

func TestSweepOverdue(t *testing.T) {
	env := newTestEnv(t)
	deal := wonRetainer(t, env, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC))

	pastDue := &domain.Invoice{
		DealID:        deal.ID,
		InvoiceNumber: fmt.Sprintf("INV-202603-%s-001", deal.ID.String()[:8]),
		Amount:        10000,
		IssueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:        domain.InvoiceStatusPending,
	}
	notDue := &domain.Invoice{
		DealID:        deal.ID,
		InvoiceNumber: fmt.Sprintf("INV-202604-%s-002", deal.ID.String()[:8]),
		Amount:        10000,
		IssueDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Status:        domain.InvoiceStatusPending,
	}
	require.NoError(t, env.db.Create(pastDue).Error)
	require.NoError(t, env.db.Create(notDue).Error)

	flagged, err := env.invoices.SweepOverdue(context.Background(), time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	reloaded, err := env.invoiceRepo.GetByID(context.Background(), pastDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusOverdue, reloaded.Status)

	untouched, err := env.invoiceRepo.GetByID(context.Background(), notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPending, untouched.Status)
}
