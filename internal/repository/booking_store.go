package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/match-slot-booking/internal/booking"
	"github.com/iliyamo/match-slot-booking/internal/model"
)

// CountActiveSlots recomputes the confirmed slot count from ACTIVE
// booking_slots rows.  Called inside the row-locked transaction so the
// count and the decision that follows it share one snapshot.
func (s *Store) CountActiveSlots(ctx context.Context, matchID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM booking_slots WHERE match_id = ? AND status = ?`
	var n int
	err := s.q(ctx).QueryRowContext(ctx, q, matchID, model.SlotActive).Scan(&n)
	return n, err
}

// ActiveSlotNumbers returns the slot numbers currently held by ACTIVE
// booking slots, ordered ascending for deterministic allocation.
func (s *Store) ActiveSlotNumbers(ctx context.Context, matchID uint64) ([]int, error) {
	const q = `SELECT slot_number FROM booking_slots
               WHERE match_id = ? AND status = ?
               ORDER BY slot_number`
	rows, err := s.q(ctx).QueryContext(ctx, q, matchID, model.SlotActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nums []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		nums = append(nums, n)
	}
	return nums, rows.Err()
}

// CreateBooking inserts a booking and populates the generated ID and
// timestamps.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings
               (match_id, user_id, status, payment_status, total_slots, total_amount_cents)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.q(ctx).ExecContext(ctx, q,
		b.MatchID, b.UserID, b.Status, b.PaymentStatus, b.TotalSlots, b.TotalAmountCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT created_at, updated_at FROM bookings WHERE id = ?`
	return s.q(ctx).QueryRowContext(ctx, sel, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetBooking loads a booking by id.
func (s *Store) GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT id, match_id, user_id, status, payment_status, total_slots,
                      total_amount_cents, payment_ref, created_at, updated_at
               FROM bookings WHERE id = ?`
	var b model.Booking
	var payRef sql.NullString
	err := s.q(ctx).QueryRowContext(ctx, q, bookingID).Scan(
		&b.ID, &b.MatchID, &b.UserID, &b.Status, &b.PaymentStatus, &b.TotalSlots,
		&b.TotalAmountCents, &payRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, err
	}
	if payRef.Valid {
		ref := payRef.String
		b.PaymentRef = &ref
	}
	return &b, nil
}

// UpdateBooking writes the mutable booking fields back.
func (s *Store) UpdateBooking(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings
               SET status = ?, payment_status = ?, total_amount_cents = ?, payment_ref = ?, updated_at = UTC_TIMESTAMP()
               WHERE id = ?`
	var payRef interface{}
	if b.PaymentRef != nil {
		payRef = *b.PaymentRef
	}
	_, err := s.q(ctx).ExecContext(ctx, q, b.Status, b.PaymentStatus, b.TotalAmountCents, payRef, b.ID)
	return err
}

// CreateBookingSlots bulk-inserts one ACTIVE row per slot number.
func (s *Store) CreateBookingSlots(ctx context.Context, bookingID, matchID uint64, slotNumbers []int) error {
	if len(slotNumbers) == 0 {
		return nil
	}
	query := `INSERT INTO booking_slots (booking_id, match_id, slot_number, status) VALUES `
	args := make([]interface{}, 0, len(slotNumbers)*4)
	for i, n := range slotNumbers {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, bookingID, matchID, n, model.SlotActive)
	}
	_, err := s.q(ctx).ExecContext(ctx, query, args...)
	return err
}

// ActiveSlotsByBooking lists the ACTIVE slots of one booking.
func (s *Store) ActiveSlotsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingSlot, error) {
	const q = `SELECT id, booking_id, match_id, slot_number, status, created_at
               FROM booking_slots
               WHERE booking_id = ? AND status = ?
               ORDER BY slot_number`
	rows, err := s.q(ctx).QueryContext(ctx, q, bookingID, model.SlotActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var slots []model.BookingSlot
	for rows.Next() {
		var sl model.BookingSlot
		if err := rows.Scan(&sl.ID, &sl.BookingID, &sl.MatchID, &sl.SlotNumber, &sl.Status, &sl.CreatedAt); err != nil {
			return nil, err
		}
		slots = append(slots, sl)
	}
	return slots, rows.Err()
}

// ReleaseBookingSlots soft-deletes the booking's ACTIVE slots and
// returns the freed slot numbers.
func (s *Store) ReleaseBookingSlots(ctx context.Context, bookingID uint64) ([]int, error) {
	slots, err := s.ActiveSlotsByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}
	const q = `UPDATE booking_slots SET status = ? WHERE booking_id = ? AND status = ?`
	if _, err := s.q(ctx).ExecContext(ctx, q, model.SlotReleased, bookingID, model.SlotActive); err != nil {
		return nil, err
	}
	nums := make([]int, 0, len(slots))
	for _, sl := range slots {
		nums = append(nums, sl.SlotNumber)
	}
	return nums, nil
}

// BookingWithSlots pairs a booking with its slot numbers for listing
// endpoints.
type BookingWithSlots struct {
	model.Booking
	SlotNumbers []int  `json:"slot_numbers"`
	MatchTitle  string `json:"match_title"`
}

// ListBookingsByUser returns a user's bookings newest first, each with
// its ACTIVE slot numbers and match title.
func (s *Store) ListBookingsByUser(ctx context.Context, userID uint64) ([]BookingWithSlots, error) {
	const q = `SELECT b.id, b.match_id, b.user_id, b.status, b.payment_status,
                      b.total_slots, b.total_amount_cents, b.payment_ref,
                      b.created_at, b.updated_at, m.title
               FROM bookings b
               JOIN matches m ON m.id = b.match_id
               WHERE b.user_id = ?
               ORDER BY b.created_at DESC`
	rows, err := s.q(ctx).QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]BookingWithSlots, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var it BookingWithSlots
		var payRef sql.NullString
		if err := rows.Scan(
			&it.ID, &it.MatchID, &it.UserID, &it.Status, &it.PaymentStatus,
			&it.TotalSlots, &it.TotalAmountCents, &payRef,
			&it.CreatedAt, &it.UpdatedAt, &it.MatchTitle,
		); err != nil {
			return nil, err
		}
		if payRef.Valid {
			ref := payRef.String
			it.PaymentRef = &ref
		}
		it.SlotNumbers = []int{}
		index[it.ID] = len(items)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]interface{}, 0, len(items))
	placeholders := ""
	for i, it := range items {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		ids = append(ids, it.ID)
	}
	slotQ := `SELECT booking_id, slot_number FROM booking_slots
              WHERE booking_id IN (` + placeholders + `) AND status = '` + model.SlotActive + `'
              ORDER BY booking_id, slot_number`
	srows, err := s.q(ctx).QueryContext(ctx, slotQ, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var bid uint64
		var num int
		if err := srows.Scan(&bid, &num); err != nil {
			return nil, err
		}
		if idx, ok := index[bid]; ok {
			items[idx].SlotNumbers = append(items[idx].SlotNumbers, num)
		}
	}
	return items, srows.Err()
}
