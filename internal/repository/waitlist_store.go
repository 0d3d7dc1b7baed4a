package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// CreateWaitlistEntry inserts an entry and populates its ID.  The
// created_at default defines promotion order, so the column is left to
// the database.
func (s *Store) CreateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries (match_id, user_id, slots_required, status)
               VALUES (?, ?, ?, ?)`
	res, err := s.q(ctx).ExecContext(ctx, q, e.MatchID, e.UserID, e.SlotsRequired, e.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	const sel = `SELECT created_at FROM waitlist_entries WHERE id = ?`
	return s.q(ctx).QueryRowContext(ctx, sel, e.ID).Scan(&e.CreatedAt)
}

// ActiveWaitlist returns ACTIVE entries for a match in FIFO order.
// The id tiebreak keeps ordering stable when two entries share a
// created_at second.
func (s *Store) ActiveWaitlist(ctx context.Context, matchID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT id, match_id, user_id, slots_required, status, created_at
               FROM waitlist_entries
               WHERE match_id = ? AND status = ?
               ORDER BY created_at ASC, id ASC`
	rows, err := s.q(ctx).QueryContext(ctx, q, matchID, model.WaitlistActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.MatchID, &e.UserID, &e.SlotsRequired, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WaitlistReserved sums slots_required over ACTIVE entries.
func (s *Store) WaitlistReserved(ctx context.Context, matchID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(slots_required), 0) FROM waitlist_entries
               WHERE match_id = ? AND status = ?`
	var n int
	err := s.q(ctx).QueryRowContext(ctx, q, matchID, model.WaitlistActive).Scan(&n)
	return n, err
}

// ActiveWaitlistEntryByUser returns the user's ACTIVE entry for a
// match, or nil when there is none.
func (s *Store) ActiveWaitlistEntryByUser(ctx context.Context, matchID, userID uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT id, match_id, user_id, slots_required, status, created_at
               FROM waitlist_entries
               WHERE match_id = ? AND user_id = ? AND status = ?
               LIMIT 1`
	var e model.WaitlistEntry
	err := s.q(ctx).QueryRowContext(ctx, q, matchID, userID, model.WaitlistActive).Scan(
		&e.ID, &e.MatchID, &e.UserID, &e.SlotsRequired, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// UpdateWaitlistStatus moves an entry to a new status.
func (s *Store) UpdateWaitlistStatus(ctx context.Context, entryID uint64, status string) error {
	const q = `UPDATE waitlist_entries SET status = ? WHERE id = ?`
	_, err := s.q(ctx).ExecContext(ctx, q, status, entryID)
	return err
}
