package models_test

import (
	"testing"
	"time"

	"installmart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstallmentSchedule_EvenSplit(t *testing.T) {
	start := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

	installments, monthly, err := models.BuildInstallmentSchedule(12000, 6, start)
	require.NoError(t, err)
	require.Len(t, installments, 6)
	assert.Equal(t, 2000.0, monthly)

	sum := 0.0
	for i, inst := range installments {
		assert.Equal(t, i+1, inst.Seq)
		assert.Equal(t, 2000.0, inst.Amount)
		assert.Equal(t, models.InstallmentPending, inst.Status)
		sum += inst.Amount
	}
	assert.Equal(t, 12000.0, sum)

	// First installment is due on the order creation date.
	assert.Equal(t, start, installments[0].DueDate)
}

func TestBuildInstallmentSchedule_LastAbsorbsRounding(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	installments, monthly, err := models.BuildInstallmentSchedule(10000, 6, start)
	require.NoError(t, err)
	assert.Equal(t, 1666.67, monthly)

	sum := 0.0
	for _, inst := range installments {
		sum += inst.Amount
	}
	assert.InDelta(t, 10000.0, sum, 0.001)
	assert.InDelta(t, 1666.65, installments[5].Amount, 0.001)
}

func TestBuildInstallmentSchedule_DueDatesMonthlyIncreasing(t *testing.T) {
	start := time.Date(2025, time.May, 10, 0, 0, 0, 0, time.UTC)

	installments, _, err := models.BuildInstallmentSchedule(18000, 12, start)
	require.NoError(t, err)

	for i := 1; i < len(installments); i++ {
		assert.True(t, installments[i].DueDate.After(installments[i-1].DueDate),
			"due dates must strictly increase")
		assert.Equal(t, installments[i-1].DueDate.AddDate(0, 1, 0), installments[i].DueDate,
			"due dates must be spaced one calendar month apart")
	}
}

func TestBuildInstallmentSchedule_Invalid(t *testing.T) {
	start := time.Now()

	_, _, err := models.BuildInstallmentSchedule(1000, 0, start)
	assert.Error(t, err)

	_, _, err = models.BuildInstallmentSchedule(0, 6, start)
	assert.Error(t, err)
}

func newTestOrder(t *testing.T, total float64, months int, start time.Time) *models.Order {
	t.Helper()
	installments, monthly, err := models.BuildInstallmentSchedule(total, months, start)
	require.NoError(t, err)
	return &models.Order{
		Total:             total,
		InstallmentMonths: months,
		MonthlyPayment:    monthly,
		Installments:      installments,
		NextDueDate:       &installments[0].DueDate,
	}
}

func TestMarkInstallmentPaid(t *testing.T) {
	start := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	order := newTestOrder(t, 12000, 6, start)
	now := start.Add(12 * time.Hour)

	err := order.MarkInstallmentPaid(1, "TXN-1", now)
	require.NoError(t, err)

	inst := order.FindInstallment(1)
	assert.Equal(t, models.InstallmentPaid, inst.Status)
	assert.Equal(t, "TXN-1", inst.TransactionID)
	require.NotNil(t, inst.PaidAt)
	assert.Equal(t, now, *inst.PaidAt)

	// Next due moves to installment 2.
	require.NotNil(t, order.NextDueDate)
	assert.Equal(t, order.FindInstallment(2).DueDate, *order.NextDueDate)

	// Paid is terminal.
	err = order.MarkInstallmentPaid(1, "TXN-2", now)
	assert.ErrorIs(t, err, models.ErrInstallmentAlreadyPaid)
	assert.Equal(t, "TXN-1", inst.TransactionID)

	err = order.MarkInstallmentPaid(99, "TXN-3", now)
	assert.ErrorIs(t, err, models.ErrInstallmentNotFound)
}

func TestMarkInstallmentPaid_OverdueIsPayable(t *testing.T) {
	start := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	order := newTestOrder(t, 6000, 3, start)

	afterDue := start.AddDate(0, 0, 1)
	require.Equal(t, 1, order.SweepOverdue(afterDue))
	require.Equal(t, models.InstallmentOverdue, order.FindInstallment(1).Status)

	// Late payment still settles the installment.
	err := order.MarkInstallmentPaid(1, "TXN-LATE", afterDue.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentPaid, order.FindInstallment(1).Status)
}

func TestSweepOverdue(t *testing.T) {
	start := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	order := newTestOrder(t, 6000, 3, start)

	// One day past the second installment's due date.
	now := start.AddDate(0, 1, 1)
	flipped := order.SweepOverdue(now)
	assert.Equal(t, 2, flipped)
	assert.Equal(t, models.InstallmentOverdue, order.FindInstallment(1).Status)
	assert.Equal(t, models.InstallmentOverdue, order.FindInstallment(2).Status)
	assert.Equal(t, models.InstallmentPending, order.FindInstallment(3).Status)

	// Next due is the remaining pending installment.
	require.NotNil(t, order.NextDueDate)
	assert.Equal(t, order.FindInstallment(3).DueDate, *order.NextDueDate)

	// Second run is a no-op.
	assert.Equal(t, 0, order.SweepOverdue(now))
}

func TestSweepOverdue_NoPendingLeft(t *testing.T) {
	start := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	order := newTestOrder(t, 6000, 3, start)

	now := start.AddDate(0, 3, 0)
	assert.Equal(t, 3, order.SweepOverdue(now))
	assert.Nil(t, order.NextDueDate)
}

func TestInstallmentsDueWithin_ReminderDedup(t *testing.T) {
	now := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	order := newTestOrder(t, 6000, 3, now.AddDate(0, 0, 2))

	due := order.InstallmentsDueWithin(now, 72*time.Hour)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].Seq)

	// Recording the reminder makes a same-day re-run a no-op.
	due[0].ReminderSentAt = &now
	assert.Empty(t, order.InstallmentsDueWithin(now, 72*time.Hour))

	// The next day the installment is still in the window and reminded again.
	nextDay := now.AddDate(0, 0, 1)
	assert.Len(t, order.InstallmentsDueWithin(nextDay, 72*time.Hour), 1)
}

func TestInstallmentsDueWithin_SkipsPastAndPaid(t *testing.T) {
	now := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	order := newTestOrder(t, 6000, 3, now.AddDate(0, 0, -1))

	// First installment is already past due, second is a month out.
	assert.Empty(t, order.InstallmentsDueWithin(now, 72*time.Hour))
}

func TestValidMethod(t *testing.T) {
	assert.True(t, models.ValidMethod(models.MethodJazzCash))
	assert.True(t, models.ValidMethod(models.MethodEasyPaisa))
	assert.True(t, models.ValidMethod(models.MethodPayFast))
	assert.True(t, models.ValidMethod(models.MethodBank))
	assert.True(t, models.ValidMethod(models.MethodMock))
	assert.False(t, models.ValidMethod("paypal"))
	assert.False(t, models.ValidMethod(""))
}
