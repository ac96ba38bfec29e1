package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DerivedState is the current financial view over a loan and its
// payment history. It is recomputed on every read and never persisted:
// payment events can change between renders.
type DerivedState struct {
	TotalDue          decimal.Decimal
	InstallmentAmount decimal.Decimal

	TotalPaid          decimal.Decimal
	OutstandingBalance decimal.Decimal

	ElapsedDays           int
	ExpectedInstallments  int
	PaidInstallments      int
	RemainingInstallments int

	// Exactly one of Advance/Arrears is nonzero; both are zero when the
	// paid total sits exactly on an installment boundary. Fractional,
	// rounded to 2 decimals.
	AdvanceInstallments decimal.Decimal
	ArrearsInstallments decimal.Decimal

	DueDate     string // YYYY-MM-DD, empty when installments == 0
	DaysPastDue int

	// Outstanding balance split for presentation: whole installments
	// remaining plus a residual fractional amount.
	WholeInstallmentsLeft int
	ResidualAmount        decimal.Decimal

	// PeriodCollected sums payments dated within the current period
	// window. For daily loans the window degenerates to "today".
	PeriodCollected decimal.Decimal
}

// SettlementTotals aggregates the pending working day for preflight
// display and the final cash handover figure.
type SettlementTotals struct {
	CashCollected    decimal.Decimal `json:"cash_collected"`
	DepositCollected decimal.Decimal `json:"deposit_collected"`
	OtherCollected   decimal.Decimal `json:"other_collected"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
	CashBaseTotal    decimal.Decimal `json:"cash_base_total"`
	NewLoanPrincipal decimal.Decimal `json:"new_loan_principal"`
	ExpenseTotal     decimal.Decimal `json:"expense_total"`
	// NetCashDue = cash + deposits + base - new loans - expenses:
	// the cash the agent owes back at settlement.
	NetCashDue decimal.Decimal `json:"net_cash_due"`
}

// EntryCounts tallies pending mutations by kind.
type EntryCounts struct {
	Loans     int `json:"loans"`
	Payments  int `json:"payments"`
	Expenses  int `json:"expenses"`
	CashBases int `json:"cash_bases"`
}

// Total returns the number of syncable entries counted.
func (c EntryCounts) Total() int {
	return c.Loans + c.Payments + c.Expenses + c.CashBases
}

// PaymentLine is one payment row in the preflight detail listing,
// ordered by capture time.
type PaymentLine struct {
	EntryID  string          `json:"entry_id"`
	LoanCode string          `json:"loan_code"`
	Amount   decimal.Decimal `json:"amount"`
	Method   PaymentMethod   `json:"method"`
	At       time.Time       `json:"at"`
}

// PreflightSnapshot is the ephemeral reconciliation record shown to the
// user before committing a sync. The signature pins the outbox state
// the user approved; commit fails fast if the outbox has since changed.
type PreflightSnapshot struct {
	AgentID   string
	BuiltAt   time.Time
	Totals    SettlementTotals
	Counts    EntryCounts
	Signature []string

	// Entries are the syncable mutations included in the batch.
	// Shadow holds audit-only loan:shadow entries, excluded from the
	// network submission but counted into settlement totals.
	Entries []OutboxEntry
	Shadow  []OutboxEntry

	Payments []PaymentLine
}

// Syncable reports whether the snapshot contains anything that must be
// submitted to the server. A shadow-only snapshot is valid but produces
// no network call.
func (p *PreflightSnapshot) Syncable() bool {
	return len(p.Entries) > 0
}
