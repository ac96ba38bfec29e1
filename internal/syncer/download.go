package syncer

import (
	"context"
	"log/slog"

	"github.com/mfigueroa/rutero/internal/dates"
	"github.com/mfigueroa/rutero/internal/session"
)

// Download fetches the agent's working set and replaces the local loan
// snapshot, payment lists, and daily stats. Like the upload gate, a
// download is allowed once per agent per calendar day: the working set
// is the day's authoritative starting point, and re-downloading over a
// day in progress would discard field captures from view.
func (s *Service) Download(ctx context.Context, sess session.Context) error {
	marker := "download:" + sess.AgentID + ":" + dates.Format(s.now())
	done, err := s.store.Meta(ctx, marker)
	if err != nil {
		return err
	}
	if done != "" {
		return NewFlowError(ErrCodeAlreadyDownloaded, "working set for agent %s was already downloaded today", sess.AgentID)
	}

	ws, err := s.api.DownloadWorkingSet(ctx, sess.AgentID)
	if err != nil {
		return err
	}

	if err := s.store.SaveLoans(ctx, ws.Loans); err != nil {
		return err
	}
	for loanCode, payments := range ws.Payments {
		if err := s.store.SavePayments(ctx, loanCode, payments); err != nil {
			return err
		}
	}
	if err := s.store.SaveDailyStats(ctx, ws.Stats); err != nil {
		return err
	}
	if err := s.store.SetMeta(ctx, marker, "1"); err != nil {
		return err
	}

	slog.Info("working set downloaded", "agent_id", sess.AgentID, "loans", len(ws.Loans))
	return nil
}
