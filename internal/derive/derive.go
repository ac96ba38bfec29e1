// Package derive computes a loan's current financial state from its
// creation terms and payment history.
//
// State is a single pure function: deterministic, total, side-effect
// free. Nothing here is cached or persisted; callers recompute on every
// read because payment events can change between reads. Centralizing
// the arithmetic in one place is deliberate: spreading near-identical
// balance math across call sites with subtly different date handling is
// how arrears figures drift.
package derive

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfigueroa/rutero/internal/dates"
	"github.com/mfigueroa/rutero/internal/model"
)

// State derives the loan's view at instant now. It never returns an
// error: unparseable creation dates fall back to the unix epoch and
// installment figures degrade to zero rather than dividing by zero.
func State(loan model.LoanRecord, payments []model.PaymentEvent, now time.Time) model.DerivedState {
	totalDue := loan.TotalDue()
	instAmount := loan.InstallmentAmount()
	modality := model.NormalizeModality(string(loan.Modality))
	periodDays := modality.PeriodDays()

	createdAt, err := dates.Parse(loan.CreatedOn)
	if err != nil {
		createdAt = time.Unix(0, 0)
	}

	elapsedDays := dates.DiffDays(now, createdAt)
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	periodsElapsed := elapsedDays / periodDays

	expected := periodsElapsed
	if expected > loan.Installments {
		expected = loan.Installments
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	st := model.DerivedState{
		TotalDue:             totalDue,
		InstallmentAmount:    instAmount,
		TotalPaid:            totalPaid,
		ElapsedDays:          elapsedDays,
		ExpectedInstallments: expected,
		AdvanceInstallments:  decimal.Zero,
		ArrearsInstallments:  decimal.Zero,
		ResidualAmount:       decimal.Zero,
	}

	st.OutstandingBalance = totalDue.Sub(totalPaid)
	if st.OutstandingBalance.IsNegative() {
		st.OutstandingBalance = decimal.Zero
	}

	if loan.Installments > 0 && instAmount.IsPositive() {
		st.PaidInstallments = int(totalPaid.Div(instAmount).IntPart())
		st.RemainingInstallments = loan.Installments - st.PaidInstallments
		if st.RemainingInstallments < 0 {
			st.RemainingInstallments = 0
		}

		// Signed balance in installment units, 2-decimal precision.
		// Positive is advance, negative is arrears; an exact boundary
		// is classified as neither.
		expectedPaid := instAmount.Mul(decimal.NewFromInt(int64(expected)))
		balance := totalPaid.Sub(expectedPaid).Div(instAmount).Round(2)
		switch {
		case balance.IsPositive():
			st.AdvanceInstallments = balance
		case balance.IsNegative():
			st.ArrearsInstallments = balance.Neg()
		}

		dueAt := dates.AddDays(createdAt, loan.Installments*periodDays)
		st.DueDate = dates.Format(dueAt)
		if past := dates.DiffDays(now, dueAt); past > 0 {
			st.DaysPastDue = past
		}

		st.WholeInstallmentsLeft = int(st.OutstandingBalance.Div(instAmount).IntPart())
		st.ResidualAmount = st.OutstandingBalance.Sub(
			instAmount.Mul(decimal.NewFromInt(int64(st.WholeInstallmentsLeft))))
		if st.ResidualAmount.IsNegative() {
			st.ResidualAmount = decimal.Zero
		}
	}

	st.PeriodCollected = periodCollected(payments, createdAt, periodsElapsed, periodDays)
	return st
}

// periodCollected sums payments dated inside the current period window
// [periodStart, periodStart + periodDays). For daily loans this is the
// sum collected today.
func periodCollected(payments []model.PaymentEvent, createdAt time.Time, periodsElapsed, periodDays int) decimal.Decimal {
	periodStart := dates.AddDays(createdAt, periodsElapsed*periodDays)
	sum := decimal.Zero
	for _, p := range payments {
		paidAt, err := dates.Parse(p.Date)
		if err != nil {
			continue
		}
		offset := dates.DiffDays(paidAt, periodStart)
		if offset >= 0 && offset < periodDays {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}
