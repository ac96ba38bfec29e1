package syncer

import (
	"context"
	"log/slog"

	"github.com/mfigueroa/rutero/internal/api"
	"github.com/mfigueroa/rutero/internal/model"
	"github.com/mfigueroa/rutero/internal/session"
)

// Result reports the outcome of a confirmed reconciliation.
type Result struct {
	// Submitted is false for shadow-only batches, which settle locally
	// without a network call.
	Submitted bool

	// AlreadyProcessed is true when the server had seen this
	// idempotency key before. The client treats it as success: the
	// batch is applied exactly once either way.
	AlreadyProcessed bool

	IdempotencyKey   string
	CreatedLoans     int
	CreatedPayments  int
	CreatedExpenses  int
	CreatedCashBases int
	DeletedEntries   int
}

// Commit confirms a previously built preflight and submits the batch.
//
// Failure leaves the outbox fully intact in every case. Local cleanup
// (entry deletion, working-set reset) happens only after the server has
// affirmatively acknowledged the batch; an unknown outcome after a
// timeout is NOT acknowledgement, because retrying an idempotent batch
// is always safe but clearing a queue that was never applied loses the
// day's work permanently.
func (s *Service) Commit(ctx context.Context, sess session.Context, snapshot *model.PreflightSnapshot) (*Result, error) {
	s.setState(StateConfirmed)
	defer func() {
		// Terminal states are transient; the service returns to idle
		// so the next attempt can start from a fresh preflight.
		s.setState(StateIdle)
	}()

	fail := func(err error) (*Result, error) {
		s.setState(StateFailed)
		return nil, err
	}

	// A session switch invalidates any in-progress preflight.
	if snapshot == nil || snapshot.AgentID != sess.AgentID {
		return fail(NewFlowError(ErrCodeStaleSnapshot, "preflight belongs to a different session; build it again"))
	}

	// Re-read and re-sign: the outbox may have changed while the user
	// was reviewing the summary (e.g. a payment posted from another
	// part of the UI).
	owned, shadow, err := s.collectOwned(ctx, sess)
	if err != nil {
		return fail(err)
	}
	current := model.Signature(append(append([]model.OutboxEntry{}, owned...), shadow...))
	if !model.SignaturesEqual(current, snapshot.Signature) {
		return fail(NewFlowError(ErrCodeStaleSnapshot, "outbox changed since preflight; build it again"))
	}

	if len(owned) == 0 {
		// Shadow-only: the server already holds these loans. Settle
		// the audit entries locally without a network submission.
		ids := entryIDs(shadow)
		if err := s.store.DeleteOutbox(ctx, ids); err != nil {
			return fail(err)
		}
		slog.Info("shadow-only batch settled locally", "agent_id", sess.AgentID, "entries", len(ids))
		s.setState(StateSucceeded)
		return &Result{Submitted: false, DeletedEntries: len(ids)}, nil
	}

	// Daily-once authorization, checked immediately before submission.
	perm, err := s.api.CheckUploadPermission(ctx, sess.AgentID)
	if err != nil {
		return fail(err)
	}
	if !perm.Allowed {
		if perm.Reason == api.ReasonAlreadyUsedToday {
			return fail(api.NewSyncError(api.CodeAlreadyUsedToday, "an upload was already made today; the next one opens tomorrow"))
		}
		return fail(api.NewSyncError(api.CodePermissionDenied, "agent is not authorized to upload"))
	}

	batch := s.buildBatch(sess, owned)

	s.setState(StateSubmitting)
	slog.Info("submitting sync batch",
		"agent_id", sess.AgentID,
		"idempotency_key", batch.IdempotencyKey,
		"loans", len(batch.NewLoans),
		"payments", len(batch.Payments),
		"expenses", len(batch.Expenses),
		"cash_bases", len(batch.CashBases),
	)

	var result api.SyncResult
	err = s.retry.Do(ctx, "sync-submit", func(ctx context.Context) error {
		var submitErr error
		result, submitErr = s.api.SubmitSyncBatch(ctx, batch)
		return submitErr
	})
	if err != nil {
		return fail(err)
	}

	if err := s.applyResult(ctx, result); err != nil {
		return fail(err)
	}

	ids := entryIDs(append(append([]model.OutboxEntry{}, owned...), shadow...))
	if err := s.store.DeleteOutbox(ctx, ids); err != nil {
		return fail(err)
	}

	// The next working day starts from a fresh download.
	if err := s.store.ClearWorkingSet(ctx); err != nil {
		return fail(err)
	}

	s.setState(StateSucceeded)
	slog.Info("sync batch confirmed",
		"agent_id", sess.AgentID,
		"idempotency_key", batch.IdempotencyKey,
		"already_processed", result.AlreadyProcessed,
		"deleted_entries", len(ids),
	)
	s.notify()
	return &Result{
		Submitted:        true,
		AlreadyProcessed: result.AlreadyProcessed,
		IdempotencyKey:   batch.IdempotencyKey,
		CreatedLoans:     len(result.CreatedLoans),
		CreatedPayments:  result.CreatedPayments,
		CreatedExpenses:  result.CreatedExpenses,
		CreatedCashBases: result.CreatedCashBases,
		DeletedEntries:   len(ids),
	}, nil
}

// buildBatch normalizes outbox entries into the wire batch, keyed by
// mutation kind, under a fresh idempotency key.
func (s *Service) buildBatch(sess session.Context, owned []model.OutboxEntry) api.SyncBatch {
	batch := api.SyncBatch{
		IdempotencyKey: "sync-" + s.newID(),
		AgentID:        sess.AgentID,
		NewLoans:       []api.NewLoan{},
		Payments:       []api.NewPayment{},
		Expenses:       []api.NewExpense{},
		CashBases:      []api.CashBaseEntry{},
	}
	for _, entry := range owned {
		switch op := entry.Op.(type) {
		case model.LoanNew:
			batch.NewLoans = append(batch.NewLoans, api.NewLoan{
				TempID:       op.TempID,
				AgentID:      entry.AgentID,
				ClientID:     op.ClientID,
				ClientName:   op.ClientName,
				Principal:    op.Principal,
				InterestRate: op.InterestRate,
				Installments: op.Installments,
				Modality:     op.Modality,
				RouteNumber:  op.RouteNumber,
				Notes:        op.Notes,
			})
		case model.PaymentNew:
			batch.Payments = append(batch.Payments, api.NewPayment{
				PaymentID: op.PaymentID,
				LoanCode:  op.LoanCode,
				Amount:    op.Amount,
				Method:    op.Method,
				Date:      op.Date,
			})
		case model.ExpenseNew:
			batch.Expenses = append(batch.Expenses, api.NewExpense{
				AgentID:  entry.AgentID,
				Category: op.Category,
				Amount:   op.Amount,
				Note:     op.Note,
				Date:     op.Date,
			})
		case model.CashBaseSet:
			batch.CashBases = append(batch.CashBases, api.CashBaseEntry{
				AgentID: entry.AgentID,
				Date:    op.Date,
				Amount:  op.Amount,
			})
		}
	}
	return batch
}

// applyResult remaps every temporary loan id in the server's response
// to its server-issued code, in both the loan snapshot and the
// payments-by-loan keys.
func (s *Service) applyResult(ctx context.Context, result api.SyncResult) error {
	if len(result.CreatedLoans) == 0 {
		return nil
	}
	codes := map[string]string{}
	for _, created := range result.CreatedLoans {
		codes[created.TempID] = created.Code
	}

	loans, err := s.store.Loans(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i, loan := range loans {
		if code, ok := codes[loan.Code]; ok {
			loans[i].Code = code
			changed = true
		}
	}
	if changed {
		if err := s.store.SaveLoans(ctx, loans); err != nil {
			return err
		}
	}

	for tempID, code := range codes {
		if err := s.store.RenamePayments(ctx, tempID, code); err != nil {
			return err
		}
	}
	return nil
}

func entryIDs(entries []model.OutboxEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
