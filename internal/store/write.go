package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mfigueroa/rutero/internal/model"
)

// SaveLoans replaces the loan snapshot wholesale. The snapshot is a
// working copy downloaded for one agent; partial updates go through
// read-modify-write at the caller.
func (s *Store) SaveLoans(ctx context.Context, loans []model.LoanRecord) error {
	if loans == nil {
		loans = []model.LoanRecord{}
	}
	return s.putSnapshot(ctx, keyLoans, loans)
}

// SavePayments replaces the payment list for one loan code.
func (s *Store) SavePayments(ctx context.Context, loanCode string, payments []model.PaymentEvent) error {
	if payments == nil {
		payments = []model.PaymentEvent{}
	}
	data, err := json.Marshal(payments)
	if err != nil {
		return fmt.Errorf("save payments %s: %w", loanCode, err)
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO payments (loan_code, data) VALUES (?, ?)
		ON CONFLICT(loan_code) DO UPDATE SET data = excluded.data
	`, loanCode, string(data))
	if err != nil {
		return fmt.Errorf("save payments %s: %w", loanCode, err)
	}
	return nil
}

// RenamePayments moves a payment list from one loan code to another.
// Used when the sync protocol remaps a temporary loan id to its
// server-issued code.
func (s *Store) RenamePayments(ctx context.Context, fromCode, toCode string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE OR REPLACE payments SET loan_code = ? WHERE loan_code = ?
	`, toCode, fromCode)
	if err != nil {
		return fmt.Errorf("rename payments %s -> %s: %w", fromCode, toCode, err)
	}
	return nil
}

// SaveDailyStats replaces the daily aggregate cache.
func (s *Store) SaveDailyStats(ctx context.Context, stats model.DailyStats) error {
	return s.putSnapshot(ctx, keyStats, stats)
}

// AppendOutbox appends an entry to the outbox queue. It never mutates
// or removes existing entries. Duplicate ids are silently ignored
// (ON CONFLICT DO NOTHING), which makes re-delivery of the same entry
// idempotent.
func (s *Store) AppendOutbox(ctx context.Context, entry model.OutboxEntry) error {
	data, err := model.MarshalEntry(entry)
	if err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO outbox (id, agent_id, kind, recorded_at, entry)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, entry.ID, entry.AgentID, string(entry.Op.Kind()), entry.RecordedAt.UnixMilli(), string(data))
	if err != nil {
		return fmt.Errorf("append outbox %s: %w", entry.ID, err)
	}
	return nil
}

// DeleteOutbox removes the given entries in a single transaction.
// Missing ids are not an error: re-running a cleanup after a crash must
// succeed. Only the listed ids are touched, never the whole queue.
func (s *Store) DeleteOutbox(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete outbox: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outbox WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete outbox: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete outbox: %w", err)
	}
	return nil
}

// ClearWorkingSet empties the loan snapshot, payment lists, and daily
// aggregate in one transaction. The outbox and meta flags are left
// untouched; this is the post-sync "next day starts from a fresh
// download" cleanup, not the destructive Reset.
func (s *Store) ClearWorkingSet(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear working set: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE key IN (?, ?)`, keyLoans, keyStats); err != nil {
		return fmt.Errorf("clear working set: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments`); err != nil {
		return fmt.Errorf("clear working set: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clear working set: %w", err)
	}
	return nil
}

// SetMeta stores a small key/value flag (download markers and similar).
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func (s *Store) putSnapshot(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}
