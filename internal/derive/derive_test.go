package derive

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/rutero/internal/model"
)

func dailyLoan(principal int64, rate int64, installments int) model.LoanRecord {
	return model.LoanRecord{
		Code:         "L-1",
		AgentID:      "agent-1",
		Principal:    decimal.NewFromInt(principal),
		InterestRate: decimal.NewFromInt(rate),
		Installments: installments,
		Modality:     model.ModalityDaily,
		CreatedOn:    "2025-03-01",
	}
}

func pay(amount int64, date string) model.PaymentEvent {
	return model.PaymentEvent{
		LoanCode: "L-1",
		Amount:   decimal.NewFromInt(amount),
		Method:   model.MethodCash,
		Date:     date,
	}
}

func at(date string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func TestState_DailyLoanInArrears(t *testing.T) {
	// 500,000 at 20% over 30 daily installments: total due 600,000,
	// installment 20,000. Ten days in with 150,000 paid the agent has
	// covered 7.5 installments against 10 expected.
	loan := dailyLoan(500000, 20, 30)
	payments := []model.PaymentEvent{
		pay(100000, "2025-03-05"),
		pay(50000, "2025-03-09"),
	}

	st := State(loan, payments, at("2025-03-11"))

	assert.True(t, st.TotalDue.Equal(decimal.NewFromInt(600000)), "total due %s", st.TotalDue)
	assert.True(t, st.InstallmentAmount.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, 10, st.ElapsedDays)
	assert.Equal(t, 10, st.ExpectedInstallments)
	assert.Equal(t, 7, st.PaidInstallments)
	assert.True(t, st.ArrearsInstallments.Equal(decimal.RequireFromString("2.5")),
		"arrears %s", st.ArrearsInstallments)
	assert.True(t, st.AdvanceInstallments.IsZero())
	assert.True(t, st.OutstandingBalance.Equal(decimal.NewFromInt(450000)))
}

func TestState_Advance(t *testing.T) {
	loan := dailyLoan(500000, 20, 30)
	payments := []model.PaymentEvent{pay(260000, "2025-03-05")}

	st := State(loan, payments, at("2025-03-11"))

	// 13 installments paid against 10 expected.
	assert.True(t, st.AdvanceInstallments.Equal(decimal.NewFromInt(3)),
		"advance %s", st.AdvanceInstallments)
	assert.True(t, st.ArrearsInstallments.IsZero())
}

func TestState_ExactBoundary_NeitherAdvanceNorArrears(t *testing.T) {
	loan := dailyLoan(500000, 20, 30)
	payments := []model.PaymentEvent{pay(200000, "2025-03-05")}

	st := State(loan, payments, at("2025-03-11"))

	assert.Equal(t, 10, st.ExpectedInstallments)
	assert.True(t, st.AdvanceInstallments.IsZero(), "boundary is not advance")
	assert.True(t, st.ArrearsInstallments.IsZero(), "boundary is not arrears")
}

func TestState_NoPayments(t *testing.T) {
	loan := dailyLoan(100000, 10, 20)

	st := State(loan, nil, at("2025-03-06"))

	assert.True(t, st.TotalPaid.IsZero())
	assert.Equal(t, 5, st.ExpectedInstallments)
	assert.True(t, st.ArrearsInstallments.Equal(decimal.NewFromInt(5)))
	assert.True(t, st.OutstandingBalance.Equal(st.TotalDue))
}

func TestState_ZeroInstallments_Degrades(t *testing.T) {
	loan := dailyLoan(100000, 10, 0)
	payments := []model.PaymentEvent{pay(30000, "2025-03-02")}

	st := State(loan, payments, at("2025-03-06"))

	assert.Equal(t, 0, st.ExpectedInstallments)
	assert.Equal(t, 0, st.PaidInstallments)
	assert.True(t, st.InstallmentAmount.IsZero())
	assert.True(t, st.AdvanceInstallments.IsZero())
	assert.True(t, st.ArrearsInstallments.IsZero())
	assert.Empty(t, st.DueDate)
	assert.True(t, st.OutstandingBalance.Equal(decimal.NewFromInt(80000)))
}

func TestState_ExpectedCappedAtInstallments(t *testing.T) {
	loan := dailyLoan(100000, 10, 5)

	st := State(loan, nil, at("2025-04-15"))

	assert.Equal(t, 45, st.ElapsedDays)
	assert.Equal(t, 5, st.ExpectedInstallments, "expected never exceeds the term")
	assert.Equal(t, 40, st.DaysPastDue)
}

func TestState_DueDate(t *testing.T) {
	loan := dailyLoan(100000, 10, 20)

	st := State(loan, nil, at("2025-03-01"))

	assert.Equal(t, "2025-03-21", st.DueDate)
	assert.Equal(t, 0, st.DaysPastDue)
}

func TestState_FutureCreation_ClampsElapsed(t *testing.T) {
	loan := dailyLoan(100000, 10, 20)
	loan.CreatedOn = "2025-06-01"

	st := State(loan, nil, at("2025-03-01"))

	assert.Equal(t, 0, st.ElapsedDays)
	assert.Equal(t, 0, st.ExpectedInstallments)
}

func TestState_OverpaymentFloorsOutstanding(t *testing.T) {
	loan := dailyLoan(100000, 10, 10)
	payments := []model.PaymentEvent{pay(120000, "2025-03-02")}

	st := State(loan, payments, at("2025-03-06"))

	assert.True(t, st.OutstandingBalance.IsZero())
	assert.Equal(t, 0, st.RemainingInstallments)
}

func TestState_WeeklyModality(t *testing.T) {
	loan := dailyLoan(700000, 0, 10)
	loan.Modality = model.ModalityWeekly

	st := State(loan, nil, at("2025-03-22"))

	// 21 days elapsed over 7-day periods: 3 installments expected.
	assert.Equal(t, 3, st.ExpectedInstallments)
}

func TestState_MonthlyIsThirtyDays(t *testing.T) {
	loan := dailyLoan(900000, 0, 6)
	loan.Modality = model.ModalityMonthly

	st := State(loan, nil, at("2025-05-01"))

	// 61 calendar days is just past two 30-day cycles.
	require.Equal(t, 61, st.ElapsedDays)
	assert.Equal(t, 2, st.ExpectedInstallments)
}

func TestState_Invariant_PaidPlusOutstandingIsTotal(t *testing.T) {
	loan := dailyLoan(500000, 20, 30)
	payments := []model.PaymentEvent{
		pay(33333, "2025-03-03"),
		pay(71111, "2025-03-07"),
	}

	st := State(loan, payments, at("2025-03-11"))

	sum := st.TotalPaid.Add(st.OutstandingBalance)
	diff := sum.Sub(st.TotalDue).Abs()
	assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.01")),
		"paid+outstanding drifted from total due by %s", diff)
}

func TestState_WholeInstallmentSplit(t *testing.T) {
	loan := dailyLoan(500000, 20, 30)
	payments := []model.PaymentEvent{pay(150000, "2025-03-05")}

	st := State(loan, payments, at("2025-03-11"))

	// 450,000 outstanding at 20,000 per installment: 22 whole plus
	// 10,000 residual.
	assert.Equal(t, 22, st.WholeInstallmentsLeft)
	assert.True(t, st.ResidualAmount.Equal(decimal.NewFromInt(10000)),
		"residual %s", st.ResidualAmount)
}

func TestState_PeriodCollected_Daily(t *testing.T) {
	loan := dailyLoan(500000, 20, 30)
	payments := []model.PaymentEvent{
		pay(20000, "2025-03-10"),
		pay(5000, "2025-03-11"),
		pay(7000, "2025-03-11"),
	}

	st := State(loan, payments, at("2025-03-11"))

	// Daily window degenerates to today.
	assert.True(t, st.PeriodCollected.Equal(decimal.NewFromInt(12000)),
		"period collected %s", st.PeriodCollected)
}

func TestState_PeriodCollected_Weekly(t *testing.T) {
	loan := dailyLoan(700000, 0, 10)
	loan.Modality = model.ModalityWeekly
	payments := []model.PaymentEvent{
		pay(10000, "2025-03-07"), // previous week
		pay(20000, "2025-03-08"), // current week starts 2025-03-08
		pay(30000, "2025-03-10"),
	}

	st := State(loan, payments, at("2025-03-10"))

	assert.True(t, st.PeriodCollected.Equal(decimal.NewFromInt(50000)))
}

func TestState_BadCreationDateFallsBack(t *testing.T) {
	loan := dailyLoan(100000, 10, 20)
	loan.CreatedOn = "not-a-date"

	st := State(loan, nil, at("2025-03-06"))

	// Epoch fallback: elapsed is huge, expected caps at the term.
	assert.Equal(t, 20, st.ExpectedInstallments)
}
