package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind discriminates outbox mutation kinds.
type EntryKind string

const (
	KindLoanNew     EntryKind = "loan:new"
	KindPaymentNew  EntryKind = "payment:new"
	KindExpenseNew  EntryKind = "expense:new"
	KindCashBaseSet EntryKind = "cash-base:set"
	// KindLoanShadow records a loan created while online purely as a
	// local audit trail. Shadow entries are never resubmitted.
	KindLoanShadow EntryKind = "loan:shadow"
)

// Operation is the kind-specific payload of an outbox entry. Each
// variant carries only the fields valid for its kind; there are no
// optional fields whose meaning depends on a type string.
type Operation interface {
	Kind() EntryKind
	isOperation()
}

// LoanNew records a loan created offline, pending server confirmation.
type LoanNew struct {
	TempID       string          `json:"temp_id"`
	ClientID     string          `json:"client_id"`
	ClientName   string          `json:"client_name"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Installments int             `json:"installments"`
	Modality     Modality        `json:"modality"`
	RouteNumber  int             `json:"route_number"`
	Notes        string          `json:"notes,omitempty"`
}

func (LoanNew) Kind() EntryKind { return KindLoanNew }
func (LoanNew) isOperation()    {}

// PaymentNew records a payment taken in the field.
type PaymentNew struct {
	PaymentID string          `json:"payment_id"`
	LoanCode  string          `json:"loan_code"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Date      string          `json:"date"` // YYYY-MM-DD
}

func (PaymentNew) Kind() EntryKind { return KindPaymentNew }
func (PaymentNew) isOperation()    {}

// ExpenseNew records a field expense (fuel, repairs, etc).
type ExpenseNew struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note,omitempty"`
	Date     string          `json:"date"`
}

func (ExpenseNew) Kind() EntryKind { return KindExpenseNew }
func (ExpenseNew) isOperation()    {}

// CashBaseSet declares the cash float the agent started the day with.
type CashBaseSet struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

func (CashBaseSet) Kind() EntryKind { return KindCashBaseSet }
func (CashBaseSet) isOperation()    {}

// LoanShadow is the audit-only record of a loan created online.
type LoanShadow struct {
	Code         string          `json:"code"`
	ClientName   string          `json:"client_name"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interest_rate"`
	Installments int             `json:"installments"`
	RouteNumber  int             `json:"route_number"`
}

func (LoanShadow) Kind() EntryKind { return KindLoanShadow }
func (LoanShadow) isOperation()    {}

// OutboxEntry is a pending mutation awaiting reconciliation.
//
// Entries are append-only: they are removed only by an explicit user
// reversal before sync, or by the sync protocol after the server has
// confirmed the batch that contained them.
type OutboxEntry struct {
	ID         string    // stable local id
	AgentID    string    // owning field agent
	RecordedAt time.Time // generation timestamp
	Op         Operation
}

// envelope is the persisted JSON shape of an OutboxEntry.
type envelope struct {
	ID         string          `json:"id"`
	AgentID    string          `json:"agent_id"`
	RecordedAt int64           `json:"recorded_at"` // unix millis
	Kind       EntryKind       `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
}

// MarshalEntry serializes an OutboxEntry for storage.
func MarshalEntry(e OutboxEntry) ([]byte, error) {
	if e.Op == nil {
		return nil, fmt.Errorf("marshal outbox entry %s: nil operation", e.ID)
	}
	payload, err := json.Marshal(e.Op)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox entry %s: %w", e.ID, err)
	}
	return json.Marshal(envelope{
		ID:         e.ID,
		AgentID:    e.AgentID,
		RecordedAt: e.RecordedAt.UnixMilli(),
		Kind:       e.Op.Kind(),
		Payload:    payload,
	})
}

// UnmarshalEntry deserializes a stored OutboxEntry.
func UnmarshalEntry(data []byte) (OutboxEntry, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return OutboxEntry{}, fmt.Errorf("unmarshal outbox entry: %w", err)
	}

	var op Operation
	var err error
	switch env.Kind {
	case KindLoanNew:
		var v LoanNew
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindPaymentNew:
		var v PaymentNew
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindExpenseNew:
		var v ExpenseNew
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindCashBaseSet:
		var v CashBaseSet
		err = json.Unmarshal(env.Payload, &v)
		op = v
	case KindLoanShadow:
		var v LoanShadow
		err = json.Unmarshal(env.Payload, &v)
		op = v
	default:
		return OutboxEntry{}, fmt.Errorf("unmarshal outbox entry %s: unknown kind %q", env.ID, env.Kind)
	}
	if err != nil {
		return OutboxEntry{}, fmt.Errorf("unmarshal outbox entry %s (%s): %w", env.ID, env.Kind, err)
	}

	return OutboxEntry{
		ID:         env.ID,
		AgentID:    env.AgentID,
		RecordedAt: time.UnixMilli(env.RecordedAt),
		Op:         op,
	}, nil
}

// Signature returns the sorted list of stable entry ids. Two outbox
// states with the same signature contain the same entries, which is how
// the sync protocol detects concurrent local mutation between preflight
// and confirmation.
func Signature(entries []OutboxEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return ids
}

// SignaturesEqual compares two signatures element-wise.
func SignaturesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
