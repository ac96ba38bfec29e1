// Package api defines the remote reconciliation contract and its HTTP
// implementation.
//
// The server's one hard guarantee, which the whole offline model leans
// on: submitting the same batch twice under the same idempotency key is
// applied at most once, and the second delivery reports
// AlreadyProcessed instead of failing.
package api

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mfigueroa/rutero/internal/model"
)

// NewLoan is one offline-created loan in a sync batch.
type NewLoan struct {
	TempID       string          `json:"temp_id"`
	AgentID      string          `json:"agent_id"`
	ClientID     string          `json:"client_id"`
	ClientName   string          `json:"client_name"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Installments int             `json:"installments"`
	Modality     model.Modality  `json:"modality"`
	RouteNumber  int             `json:"route_number"`
	Notes        string          `json:"notes,omitempty"`
}

// NewPayment is one pending payment in a sync batch.
type NewPayment struct {
	PaymentID string              `json:"payment_id"`
	LoanCode  string              `json:"loan_code"`
	Amount    decimal.Decimal     `json:"amount"`
	Method    model.PaymentMethod `json:"method"`
	Date      string              `json:"date"`
}

// NewExpense is one pending field expense in a sync batch.
type NewExpense struct {
	AgentID  string          `json:"agent_id"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note,omitempty"`
	Date     string          `json:"date"`
}

// CashBaseEntry declares the agent's cash float for one day.
type CashBaseEntry struct {
	AgentID string          `json:"agent_id"`
	Date    string          `json:"date"`
	Amount  decimal.Decimal `json:"amount"`
}

// SyncBatch is the normalized submission built from the outbox. Order
// within a batch is not significant: the server applies it as a set.
type SyncBatch struct {
	IdempotencyKey string          `json:"idempotency_key"`
	AgentID        string          `json:"agent_id"`
	NewLoans       []NewLoan       `json:"new_loans"`
	Payments       []NewPayment    `json:"payments"`
	Expenses       []NewExpense    `json:"expenses"`
	CashBases      []CashBaseEntry `json:"cash_bases"`
}

// CreatedLoan maps a client-generated temporary id to the code the
// server issued for it.
type CreatedLoan struct {
	TempID string `json:"temp_id"`
	Code   string `json:"code"`
}

// SyncResult is the server's acknowledgement of a batch.
type SyncResult struct {
	AlreadyProcessed bool          `json:"already_processed"`
	CreatedLoans     []CreatedLoan `json:"created_loans"`
	CreatedPayments  int           `json:"created_payments"`
	CreatedExpenses  int           `json:"created_expenses"`
	CreatedCashBases int           `json:"created_cash_bases"`
}

// Permission is the server-side upload gate: one sync per agent per
// calendar day.
type Permission struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"` // "denied" | "already-used-today"
}

// Permission reasons returned by the server.
const (
	ReasonDenied           = "denied"
	ReasonAlreadyUsedToday = "already-used-today"
)

// WorkingSet is the agent's downloaded working day.
type WorkingSet struct {
	Loans    []model.LoanRecord              `json:"loans"`
	Payments map[string][]model.PaymentEvent `json:"payments"`
	Stats    model.DailyStats                `json:"stats"`
}

// Client is the remote reconciliation API consumed by the sync core.
type Client interface {
	// CheckUploadPermission verifies the daily-once upload gate.
	CheckUploadPermission(ctx context.Context, agentID string) (Permission, error)

	// SubmitSyncBatch submits a batch under its idempotency key. Safe
	// to call twice with the same key; the repeat is a no-op reported
	// through SyncResult.AlreadyProcessed.
	SubmitSyncBatch(ctx context.Context, batch SyncBatch) (SyncResult, error)

	// DownloadWorkingSet fetches the loan snapshot, payment lists, and
	// daily stats for one agent.
	DownloadWorkingSet(ctx context.Context, agentID string) (WorkingSet, error)
}
