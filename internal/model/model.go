// Package model defines the domain records shared across the store,
// derivation engine, and sync protocol.
package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Modality is the payment cadence of a loan.
type Modality string

const (
	ModalityDaily    Modality = "daily"
	ModalityWeekly   Modality = "weekly"
	ModalityBiweekly Modality = "biweekly"
	// ModalityMonthly is a fixed 30-day cycle, not a calendar month.
	ModalityMonthly Modality = "monthly"
)

// NormalizeModality maps arbitrary input to a known modality.
// Unrecognized values default to daily.
func NormalizeModality(s string) Modality {
	switch Modality(strings.ToLower(strings.TrimSpace(s))) {
	case ModalityWeekly:
		return ModalityWeekly
	case ModalityBiweekly:
		return ModalityBiweekly
	case ModalityMonthly:
		return ModalityMonthly
	default:
		return ModalityDaily
	}
}

// PeriodDays returns the installment period length in days.
func (m Modality) PeriodDays() int {
	switch m {
	case ModalityWeekly:
		return 7
	case ModalityBiweekly:
		return 15
	case ModalityMonthly:
		return 30
	default:
		return 1
	}
}

// PaymentMethod identifies how a payment was received.
type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodDeposit PaymentMethod = "deposit"
	MethodOther   PaymentMethod = "other"
)

// NormalizeMethod maps arbitrary input to a known payment method.
// Unrecognized values default to cash, matching field practice.
func NormalizeMethod(s string) PaymentMethod {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodDeposit:
		return MethodDeposit
	case MethodOther:
		return MethodOther
	default:
		return MethodCash
	}
}

// TempIDPrefix marks client-generated loan identifiers awaiting a
// server-issued code.
const TempIDPrefix = "tmp-"

// Route number bounds. Route numbers double as display label and sort key.
const (
	MinRouteNumber = 1
	MaxRouteNumber = 9999
)

// LoanRecord is a credit extended to a client.
//
// A loan created offline carries a temporary id in Code (prefixed with
// TempIDPrefix) until the sync protocol remaps it to a server-issued code.
type LoanRecord struct {
	Code         string          `json:"code"`
	AgentID      string          `json:"agent_id"`
	ClientID     string          `json:"client_id"`
	ClientName   string          `json:"client_name"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"` // percent, applied once to principal
	Installments int             `json:"installments"`
	Modality     Modality        `json:"modality"`
	CreatedOn    string          `json:"created_on"` // YYYY-MM-DD
	RouteNumber  int             `json:"route_number"`
	Notes        string          `json:"notes,omitempty"`
}

// IsTemp reports whether the loan still carries a client-generated id.
func (l LoanRecord) IsTemp() bool {
	return strings.HasPrefix(l.Code, TempIDPrefix)
}

// TotalDue is principal * (1 + interest/100). Interest is applied once,
// not compounded.
func (l LoanRecord) TotalDue() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return l.Principal.Mul(hundred.Add(l.InterestRate)).Div(hundred)
}

// InstallmentAmount is TotalDue / Installments, or zero when the loan
// has no installments.
func (l LoanRecord) InstallmentAmount() decimal.Decimal {
	if l.Installments <= 0 {
		return decimal.Zero
	}
	return l.TotalDue().Div(decimal.NewFromInt(int64(l.Installments)))
}

// PaymentEvent is one payment against a loan. Immutable once created;
// the only supported undo is a same-day reversal that removes it.
type PaymentEvent struct {
	ID         string          `json:"id"`
	LoanCode   string          `json:"loan_code"`
	Amount     decimal.Decimal `json:"amount"` // always > 0
	Method     PaymentMethod   `json:"method"`
	Date       string          `json:"date"` // YYYY-MM-DD
	RecordedAt int64           `json:"recorded_at"` // unix millis
	SessionTag string          `json:"session_tag,omitempty"`
}

// DailyStats is the aggregate cache for the current working day.
type DailyStats struct {
	Collected    decimal.Decimal `json:"collected"`
	PaymentCount int             `json:"payment_count"`
}

// ZeroDailyStats returns an empty aggregate (decimal zero, not the
// Decimal zero value, so it marshals as "0").
func ZeroDailyStats() DailyStats {
	return DailyStats{Collected: decimal.Zero}
}
