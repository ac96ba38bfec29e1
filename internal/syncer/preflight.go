package syncer

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mfigueroa/rutero/internal/model"
	"github.com/mfigueroa/rutero/internal/session"
)

// BuildPreflight snapshots the session agent's pending mutations into a
// settlement summary for the user to approve.
//
// Ownership: payment:new entries are owned transitively through the
// loan they target; all other kinds carry the owning agent directly.
// loan:shadow entries go into an audit-only bucket: they count into the
// settlement totals but are excluded from the network submission.
func (s *Service) BuildPreflight(ctx context.Context, sess session.Context) (*model.PreflightSnapshot, error) {
	owned, shadow, err := s.collectOwned(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 && len(shadow) == 0 {
		return nil, NewFlowError(ErrCodeEmptyBatch, "nothing to sync for agent %s", sess.AgentID)
	}

	snapshot := &model.PreflightSnapshot{
		AgentID:   sess.AgentID,
		BuiltAt:   s.now(),
		Totals:    summarize(owned, shadow),
		Counts:    count(owned, shadow),
		Signature: model.Signature(append(append([]model.OutboxEntry{}, owned...), shadow...)),
		Entries:   owned,
		Shadow:    shadow,
		Payments:  paymentLines(owned),
	}

	s.setState(StatePreflightBuilt)
	slog.Info("preflight built",
		"agent_id", sess.AgentID,
		"entries", len(owned),
		"shadow", len(shadow),
		"net_cash_due", snapshot.Totals.NetCashDue.String(),
	)
	return snapshot, nil
}

// collectOwned partitions the outbox into the session agent's syncable
// entries and their audit-only shadow entries. Entries belonging to
// other agents are invisible: a session switch must never pull another
// agent's pending work into the new session's totals.
func (s *Service) collectOwned(ctx context.Context, sess session.Context) (owned, shadow []model.OutboxEntry, err error) {
	entries, err := s.store.ListOutbox(ctx)
	if err != nil {
		return nil, nil, err
	}
	loans, err := s.store.Loans(ctx)
	if err != nil {
		return nil, nil, err
	}
	agentLoans := map[string]bool{}
	for _, l := range loans {
		if sess.Owns(l.AgentID) {
			agentLoans[l.Code] = true
		}
	}

	owned = []model.OutboxEntry{}
	shadow = []model.OutboxEntry{}
	for _, entry := range entries {
		switch op := entry.Op.(type) {
		case model.PaymentNew:
			if agentLoans[op.LoanCode] {
				owned = append(owned, entry)
			}
		case model.LoanShadow:
			if sess.Owns(entry.AgentID) {
				shadow = append(shadow, entry)
			}
		default:
			if sess.Owns(entry.AgentID) {
				owned = append(owned, entry)
			}
		}
	}
	return owned, shadow, nil
}

// summarize aggregates settlement totals over syncable and shadow
// entries. Shadow loans count into the loaned-out principal: the cash
// left the agent's hands either way.
func summarize(owned, shadow []model.OutboxEntry) model.SettlementTotals {
	t := model.SettlementTotals{
		CashCollected:    decimal.Zero,
		DepositCollected: decimal.Zero,
		OtherCollected:   decimal.Zero,
		TotalCollected:   decimal.Zero,
		CashBaseTotal:    decimal.Zero,
		NewLoanPrincipal: decimal.Zero,
		ExpenseTotal:     decimal.Zero,
		NetCashDue:       decimal.Zero,
	}
	for _, entry := range append(append([]model.OutboxEntry{}, owned...), shadow...) {
		switch op := entry.Op.(type) {
		case model.PaymentNew:
			switch op.Method {
			case model.MethodDeposit:
				t.DepositCollected = t.DepositCollected.Add(op.Amount)
			case model.MethodOther:
				t.OtherCollected = t.OtherCollected.Add(op.Amount)
			default:
				t.CashCollected = t.CashCollected.Add(op.Amount)
			}
		case model.ExpenseNew:
			t.ExpenseTotal = t.ExpenseTotal.Add(op.Amount)
		case model.CashBaseSet:
			t.CashBaseTotal = t.CashBaseTotal.Add(op.Amount)
		case model.LoanNew:
			t.NewLoanPrincipal = t.NewLoanPrincipal.Add(op.Principal)
		case model.LoanShadow:
			t.NewLoanPrincipal = t.NewLoanPrincipal.Add(op.Principal)
		}
	}
	t.TotalCollected = t.CashCollected.Add(t.DepositCollected).Add(t.OtherCollected)
	t.NetCashDue = t.CashCollected.
		Add(t.DepositCollected).
		Add(t.CashBaseTotal).
		Sub(t.NewLoanPrincipal).
		Sub(t.ExpenseTotal)
	return t
}

func count(owned, shadow []model.OutboxEntry) model.EntryCounts {
	var c model.EntryCounts
	for _, entry := range owned {
		switch entry.Op.(type) {
		case model.LoanNew:
			c.Loans++
		case model.PaymentNew:
			c.Payments++
		case model.ExpenseNew:
			c.Expenses++
		case model.CashBaseSet:
			c.CashBases++
		}
	}
	c.Loans += len(shadow)
	return c
}

func paymentLines(entries []model.OutboxEntry) []model.PaymentLine {
	lines := []model.PaymentLine{}
	for _, entry := range entries {
		if op, ok := entry.Op.(model.PaymentNew); ok {
			lines = append(lines, model.PaymentLine{
				EntryID:  entry.ID,
				LoanCode: op.LoanCode,
				Amount:   op.Amount,
				Method:   op.Method,
				At:       entry.RecordedAt,
			})
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].At.Before(lines[j].At) })
	return lines
}
