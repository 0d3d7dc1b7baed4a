package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/match-slot-booking/internal/booking"
	"github.com/iliyamo/match-slot-booking/internal/model"
)

const matchColumns = `id, title, starts_at, slot_price_cents, player_capacity,
       buffer_capacity, booked_slots, locked_slots, version, status,
       created_at, updated_at`

// scanMatch reads one match row, decoding the locked_slots JSON column
// into the typed lock map.
func scanMatch(row *sql.Row) (*model.Match, error) {
	var m model.Match
	var lockedRaw []byte
	err := row.Scan(
		&m.ID, &m.Title, &m.StartsAt, &m.SlotPriceCents, &m.PlayerCapacity,
		&m.BufferCapacity, &m.BookedSlots, &lockedRaw, &m.Version, &m.Status,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrMatchNotFound
		}
		return nil, err
	}
	m.LockedSlots = make(map[string]model.SlotLock)
	if len(lockedRaw) > 0 {
		if err := json.Unmarshal(lockedRaw, &m.LockedSlots); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// GetMatch loads a match without locking.
func (s *Store) GetMatch(ctx context.Context, matchID uint64) (*model.Match, error) {
	const q = `SELECT ` + matchColumns + ` FROM matches WHERE id = ?`
	return scanMatch(s.q(ctx).QueryRowContext(ctx, q, matchID))
}

// GetMatchForUpdate loads the match row under an exclusive row lock.
// Concurrent transactions for the same match queue on this statement;
// the wait is bounded by the transaction deadline.
func (s *Store) GetMatchForUpdate(ctx context.Context, matchID uint64) (*model.Match, error) {
	const q = `SELECT ` + matchColumns + ` FROM matches WHERE id = ? FOR UPDATE`
	return scanMatch(s.q(ctx).QueryRowContext(ctx, q, matchID))
}

// SaveMatch writes the capacity fields back.  The WHERE version = ?
// guard is the optimistic layer on top of the row lock: under the lock
// it never fires, but a code path that skipped the lock is caught here
// instead of silently clobbering a concurrent write.
func (s *Store) SaveMatch(ctx context.Context, m *model.Match) error {
	if m.LockedSlots == nil {
		m.LockedSlots = make(map[string]model.SlotLock)
	}
	lockedRaw, err := json.Marshal(m.LockedSlots)
	if err != nil {
		return err
	}
	const q = `UPDATE matches
               SET booked_slots = ?, locked_slots = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND version = ?`
	res, err := s.q(ctx).ExecContext(ctx, q, m.BookedSlots, lockedRaw, m.ID, m.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrConcurrentModification
	}
	m.Version++
	return nil
}

// MatchIDsWithLocks lists matches whose lock map is non-empty, for the
// sweeper.  JSON_LENGTH avoids decoding every lock map just to find
// candidates.
func (s *Store) MatchIDsWithLocks(ctx context.Context) ([]uint64, error) {
	const q = `SELECT id FROM matches WHERE JSON_LENGTH(locked_slots) > 0`
	rows, err := s.q(ctx).QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateMatch inserts a new match and populates the generated ID.
// Used by the organizer surface, not by the capacity core.
func (s *Store) CreateMatch(ctx context.Context, m *model.Match) error {
	if m.Status == "" {
		m.Status = model.MatchScheduled
	}
	const q = `INSERT INTO matches
               (title, starts_at, slot_price_cents, player_capacity, buffer_capacity,
                booked_slots, locked_slots, version, status)
               VALUES (?, ?, ?, ?, ?, 0, '{}', 1, ?)`
	res, err := s.q(ctx).ExecContext(ctx, q,
		m.Title, m.StartsAt.UTC().Format("2006-01-02 15:04:05"), m.SlotPriceCents,
		m.PlayerCapacity, m.BufferCapacity, m.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.Version = 1
	if m.LockedSlots == nil {
		m.LockedSlots = make(map[string]model.SlotLock)
	}
	return nil
}

// ListMatches returns upcoming matches ordered by start time.
func (s *Store) ListMatches(ctx context.Context, after time.Time) ([]model.Match, error) {
	const q = `SELECT ` + matchColumns + ` FROM matches
               WHERE starts_at >= ? AND status = ?
               ORDER BY starts_at ASC`
	rows, err := s.q(ctx).QueryContext(ctx, q, after.UTC().Format("2006-01-02 15:04:05"), model.MatchScheduled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	matches := make([]model.Match, 0)
	for rows.Next() {
		var m model.Match
		var lockedRaw []byte
		if err := rows.Scan(
			&m.ID, &m.Title, &m.StartsAt, &m.SlotPriceCents, &m.PlayerCapacity,
			&m.BufferCapacity, &m.BookedSlots, &lockedRaw, &m.Version, &m.Status,
			&m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, err
		}
		m.LockedSlots = make(map[string]model.SlotLock)
		if len(lockedRaw) > 0 {
			if err := json.Unmarshal(lockedRaw, &m.LockedSlots); err != nil {
				return nil, err
			}
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
