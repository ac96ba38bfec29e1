// Package syncer implements the outbox service and the reconciliation
// protocol: enqueue, preflight, confirm-and-submit, and post-sync
// cleanup.
//
// One reconciliation attempt moves through
//
//	IDLE -> PREFLIGHT_BUILT -> CONFIRMED -> SUBMITTING -> {SUCCEEDED | FAILED} -> IDLE
//
// The preflight snapshot carries a signature (sorted entry ids) of the
// outbox state the user approved. Commit re-reads the outbox and fails
// fast when the signature no longer matches, which detects concurrent
// local mutation without any locking between UI actions.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfigueroa/rutero/internal/api"
	"github.com/mfigueroa/rutero/internal/dates"
	"github.com/mfigueroa/rutero/internal/derive"
	"github.com/mfigueroa/rutero/internal/model"
	"github.com/mfigueroa/rutero/internal/route"
	"github.com/mfigueroa/rutero/internal/session"
	"github.com/mfigueroa/rutero/internal/store"
)

// State is the reconciliation state of the service.
type State int

const (
	StateIdle State = iota
	StatePreflightBuilt
	StateConfirmed
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePreflightBuilt:
		return "PREFLIGHT_BUILT"
	case StateConfirmed:
		return "CONFIRMED"
	case StateSubmitting:
		return "SUBMITTING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Service coordinates the local store, the derivation engine, and the
// remote API for one device.
type Service struct {
	store *store.Store
	api   api.Client
	retry api.RetryPolicy

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	state     State
	observers []chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides entry id generation (tests).
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// WithRetryPolicy overrides the submission retry policy.
func WithRetryPolicy(p api.RetryPolicy) Option {
	return func(s *Service) { s.retry = p }
}

// New creates a Service over the given store and API client.
func New(st *store.Store, client api.Client, opts ...Option) *Service {
	s := &Service{
		store: st,
		api:   client,
		retry: api.DefaultRetryPolicy(),
		now:   time.Now,
		newID: uuid.NewString,
		state: StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current reconciliation state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Subscribe returns a channel that receives a coalesced signal whenever
// the outbox changes. The buffer of one collapses bursts; receivers
// re-read the queue on each signal.
func (s *Service) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.observers = append(s.observers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Service) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.observers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Loans returns the session agent's loans from the working snapshot.
func (s *Service) Loans(ctx context.Context, sess session.Context) ([]model.LoanRecord, error) {
	loans, err := s.store.Loans(ctx)
	if err != nil {
		return nil, err
	}
	owned := make([]model.LoanRecord, 0, len(loans))
	for _, l := range loans {
		if sess.Owns(l.AgentID) {
			owned = append(owned, l)
		}
	}
	return owned, nil
}

// LoanState returns a loan and its freshly derived financial state.
// The derived view is never cached: payments may change between reads.
func (s *Service) LoanState(ctx context.Context, sess session.Context, loanCode string) (model.LoanRecord, model.DerivedState, error) {
	loan, err := s.findLoan(ctx, sess, loanCode)
	if err != nil {
		return model.LoanRecord{}, model.DerivedState{}, err
	}
	payments, err := s.store.Payments(ctx, loan.Code)
	if err != nil {
		return model.LoanRecord{}, model.DerivedState{}, err
	}
	return loan, derive.State(loan, payments, s.now()), nil
}

func (s *Service) findLoan(ctx context.Context, sess session.Context, loanCode string) (model.LoanRecord, error) {
	loans, err := s.store.Loans(ctx)
	if err != nil {
		return model.LoanRecord{}, err
	}
	for _, l := range loans {
		if l.Code == loanCode && sess.Owns(l.AgentID) {
			return l, nil
		}
	}
	return model.LoanRecord{}, NewFlowError(ErrCodeRejected, "loan %s not found for agent %s", loanCode, sess.AgentID)
}

// queueEntry appends one entry to the outbox and signals observers.
// Entries are append-only: nothing here mutates or removes existing
// entries as a side effect.
func (s *Service) queueEntry(ctx context.Context, sess session.Context, op model.Operation) (model.OutboxEntry, error) {
	entry := model.OutboxEntry{
		ID:         s.newID(),
		AgentID:    sess.AgentID,
		RecordedAt: s.now(),
		Op:         op,
	}
	if err := s.store.AppendOutbox(ctx, entry); err != nil {
		return model.OutboxEntry{}, err
	}
	slog.Info("outbox entry queued",
		"entry_id", entry.ID,
		"kind", string(op.Kind()),
		"agent_id", sess.AgentID,
	)
	s.notify()
	return entry, nil
}

// RecordPayment captures a payment against a loan: the payment list and
// the daily aggregate are updated for display, and a payment:new entry
// is queued for the next sync.
func (s *Service) RecordPayment(ctx context.Context, sess session.Context, loanCode string, amount decimal.Decimal, method model.PaymentMethod) (model.OutboxEntry, error) {
	if !amount.IsPositive() {
		return model.OutboxEntry{}, NewFlowError(ErrCodeRejected, "payment amount must be positive, got %s", amount)
	}
	loan, err := s.findLoan(ctx, sess, loanCode)
	if err != nil {
		return model.OutboxEntry{}, err
	}

	now := s.now()
	payment := model.PaymentEvent{
		ID:         s.newID(),
		LoanCode:   loan.Code,
		Amount:     amount,
		Method:     model.NormalizeMethod(string(method)),
		Date:       dates.Format(now),
		RecordedAt: now.UnixMilli(),
		SessionTag: sess.AgentID,
	}

	payments, err := s.store.Payments(ctx, loan.Code)
	if err != nil {
		return model.OutboxEntry{}, err
	}
	payments = append(payments, payment)
	if err := s.store.SavePayments(ctx, loan.Code, payments); err != nil {
		return model.OutboxEntry{}, err
	}

	stats, err := s.store.DailyStats(ctx)
	if err != nil {
		return model.OutboxEntry{}, err
	}
	stats.Collected = stats.Collected.Add(amount)
	stats.PaymentCount++
	if err := s.store.SaveDailyStats(ctx, stats); err != nil {
		return model.OutboxEntry{}, err
	}

	return s.queueEntry(ctx, sess, model.PaymentNew{
		PaymentID: payment.ID,
		LoanCode:  loan.Code,
		Amount:    amount,
		Method:    payment.Method,
		Date:      payment.Date,
	})
}

// ReversePayment undoes a payment recorded earlier the same day. This
// is the only supported undo: the entry is deleted and the cached
// payment removed, never edited in place.
func (s *Service) ReversePayment(ctx context.Context, sess session.Context, entryID string) error {
	entries, err := s.store.ListOutbox(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		op, ok := entry.Op.(model.PaymentNew)
		if !ok || entry.ID != entryID {
			continue
		}
		if !sess.Owns(entry.AgentID) {
			return NewFlowError(ErrCodeRejected, "entry %s belongs to another agent", entryID)
		}
		if op.Date != dates.Format(s.now()) {
			return NewFlowError(ErrCodeRejected, "payment %s was recorded on %s; only same-day reversal is supported", entryID, op.Date)
		}

		if err := s.store.DeleteOutbox(ctx, []string{entry.ID}); err != nil {
			return err
		}

		payments, err := s.store.Payments(ctx, op.LoanCode)
		if err != nil {
			return err
		}
		kept := payments[:0]
		for _, p := range payments {
			if p.ID != op.PaymentID {
				kept = append(kept, p)
			}
		}
		if err := s.store.SavePayments(ctx, op.LoanCode, kept); err != nil {
			return err
		}

		stats, err := s.store.DailyStats(ctx)
		if err != nil {
			return err
		}
		stats.Collected = stats.Collected.Sub(op.Amount)
		if stats.Collected.IsNegative() {
			stats.Collected = decimal.Zero
		}
		if stats.PaymentCount > 0 {
			stats.PaymentCount--
		}
		if err := s.store.SaveDailyStats(ctx, stats); err != nil {
			return err
		}

		slog.Info("payment reversed", "entry_id", entryID, "loan_code", op.LoanCode)
		s.notify()
		return nil
	}
	return NewFlowError(ErrCodeRejected, "no pending payment entry %s", entryID)
}

// LoanDraft holds the terms of a loan created in the field.
type LoanDraft struct {
	ClientID     string
	ClientName   string
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	Installments int
	Modality     model.Modality
	Notes        string

	// InsertAfter/InsertBefore are the route numbers of the new stop's
	// neighbors; nil means the corresponding route boundary.
	InsertAfter  *int
	InsertBefore *int
}

// CreateLoan creates a loan offline: allocates a route number between
// the requested neighbors, stamps a temporary id, adds the loan to the
// working snapshot, and queues a loan:new entry.
func (s *Service) CreateLoan(ctx context.Context, sess session.Context, draft LoanDraft) (model.LoanRecord, error) {
	if !draft.Principal.IsPositive() {
		return model.LoanRecord{}, NewFlowError(ErrCodeRejected, "loan principal must be positive, got %s", draft.Principal)
	}
	if draft.Installments < 0 {
		return model.LoanRecord{}, NewFlowError(ErrCodeRejected, "installments must not be negative")
	}

	loans, err := s.Loans(ctx, sess)
	if err != nil {
		return model.LoanRecord{}, err
	}
	existing := make([]int, 0, len(loans))
	for _, l := range loans {
		existing = append(existing, l.RouteNumber)
	}
	routeNumber := route.NextRouteNumber(existing, draft.InsertAfter, draft.InsertBefore)

	loan := model.LoanRecord{
		Code:         model.TempIDPrefix + s.newID(),
		AgentID:      sess.AgentID,
		ClientID:     draft.ClientID,
		ClientName:   draft.ClientName,
		Principal:    draft.Principal,
		InterestRate: draft.InterestRate,
		Installments: draft.Installments,
		Modality:     model.NormalizeModality(string(draft.Modality)),
		CreatedOn:    dates.Format(s.now()),
		RouteNumber:  routeNumber,
		Notes:        draft.Notes,
	}

	all, err := s.store.Loans(ctx)
	if err != nil {
		return model.LoanRecord{}, err
	}
	all = append(all, loan)
	if err := s.store.SaveLoans(ctx, all); err != nil {
		return model.LoanRecord{}, err
	}

	_, err = s.queueEntry(ctx, sess, model.LoanNew{
		TempID:       loan.Code,
		ClientID:     loan.ClientID,
		ClientName:   loan.ClientName,
		Principal:    loan.Principal,
		InterestRate: loan.InterestRate,
		Installments: loan.Installments,
		Modality:     loan.Modality,
		RouteNumber:  loan.RouteNumber,
		Notes:        loan.Notes,
	})
	if err != nil {
		return model.LoanRecord{}, err
	}
	return loan, nil
}

// RecordShadowLoan queues the audit-only record of a loan that was
// created online. The server already knows it; the shadow entry only
// feeds the local settlement summary and is never resubmitted.
func (s *Service) RecordShadowLoan(ctx context.Context, sess session.Context, loan model.LoanRecord) (model.OutboxEntry, error) {
	return s.queueEntry(ctx, sess, model.LoanShadow{
		Code:         loan.Code,
		ClientName:   loan.ClientName,
		Principal:    loan.Principal,
		InterestRate: loan.InterestRate,
		Installments: loan.Installments,
		RouteNumber:  loan.RouteNumber,
	})
}

// AddExpense queues a field expense for the next sync.
func (s *Service) AddExpense(ctx context.Context, sess session.Context, category string, amount decimal.Decimal, note string) (model.OutboxEntry, error) {
	if !amount.IsPositive() {
		return model.OutboxEntry{}, NewFlowError(ErrCodeRejected, "expense amount must be positive, got %s", amount)
	}
	return s.queueEntry(ctx, sess, model.ExpenseNew{
		Category: category,
		Amount:   amount,
		Note:     note,
		Date:     dates.Format(s.now()),
	})
}

// SetCashBase declares the cash float the agent started the day with.
func (s *Service) SetCashBase(ctx context.Context, sess session.Context, amount decimal.Decimal) (model.OutboxEntry, error) {
	if amount.IsNegative() {
		return model.OutboxEntry{}, NewFlowError(ErrCodeRejected, "cash base must not be negative, got %s", amount)
	}
	return s.queueEntry(ctx, sess, model.CashBaseSet{
		Amount: amount,
		Date:   dates.Format(s.now()),
	})
}
