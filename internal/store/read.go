package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mfigueroa/rutero/internal/model"
)

// Loans returns the current loan snapshot. Empty slice (not nil) when
// no working set has been downloaded.
func (s *Store) Loans(ctx context.Context) ([]model.LoanRecord, error) {
	var loans []model.LoanRecord
	ok, err := s.getSnapshot(ctx, keyLoans, &loans)
	if err != nil {
		return nil, err
	}
	if !ok || loans == nil {
		return []model.LoanRecord{}, nil
	}
	return loans, nil
}

// Payments returns the payment list for one loan code, ordered as
// stored (capture order). Empty slice when the loan has no payments.
func (s *Store) Payments(ctx context.Context, loanCode string) ([]model.PaymentEvent, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	var data string
	err = db.QueryRowContext(ctx, `SELECT data FROM payments WHERE loan_code = ?`, loanCode).Scan(&data)
	if err == sql.ErrNoRows {
		return []model.PaymentEvent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read payments %s: %w", loanCode, err)
	}
	var payments []model.PaymentEvent
	if err := json.Unmarshal([]byte(data), &payments); err != nil {
		return nil, fmt.Errorf("read payments %s: %w", loanCode, err)
	}
	if payments == nil {
		payments = []model.PaymentEvent{}
	}
	return payments, nil
}

// DailyStats returns the daily aggregate cache, zeroed when absent.
func (s *Store) DailyStats(ctx context.Context) (model.DailyStats, error) {
	var stats model.DailyStats
	ok, err := s.getSnapshot(ctx, keyStats, &stats)
	if err != nil {
		return model.ZeroDailyStats(), err
	}
	if !ok {
		return model.ZeroDailyStats(), nil
	}
	return stats, nil
}

// ListOutbox returns every pending entry in timestamp order. The order
// is for display and totalling only; the server applies a batch as a
// set.
func (s *Store) ListOutbox(ctx context.Context) ([]model.OutboxEntry, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT entry FROM outbox
		ORDER BY recorded_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	entries := []model.OutboxEntry{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("list outbox: %w", err)
		}
		entry, err := model.UnmarshalEntry([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("list outbox: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	return entries, nil
}

// OutboxCount returns the number of pending entries.
func (s *Store) OutboxCount(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count outbox: %w", err)
	}
	return n, nil
}

// Meta returns a stored flag value, or "" when absent.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var value string
	err = db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

// getSnapshot reads a key-addressed JSON document into v. Returns false
// when the key has never been written.
func (s *Store) getSnapshot(ctx context.Context, key string, v any) (bool, error) {
	db, err := s.conn()
	if err != nil {
		return false, err
	}
	var data string
	err = db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return false, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return true, nil
}
