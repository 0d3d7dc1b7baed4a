package booking

import (
	"context"
	"time"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// ConfirmBooking converts a soft lock into a confirmed booking once
// the payment collaborator reports success.  userID guards ownership;
// pass 0 from trusted callers such as a payment webhook.
// discountCents comes from the promo collaborator and is subtracted
// before the total is persisted; this core never computes discounts.
//
// Idempotent per booking: confirming an already-confirmed booking
// (duplicate webhook, client retry) returns the existing booking
// without touching capacity.
func (s *Service) ConfirmBooking(ctx context.Context, bookingID uint64, lockID string, userID uint64, discountCents uint32) (*model.Booking, error) {
	var (
		confirmed   *model.Booking
		slotNumbers []int
		already     bool
		lockGone    bool
	)
	err := s.withTx(ctx, func(ctx context.Context) error {
		b, err := s.store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if userID != 0 && b.UserID != userID {
			return ErrForbidden
		}
		if b.Status == model.BookingConfirmed {
			confirmed, already = b, true
			return nil
		}
		if b.Status != model.BookingPending {
			// Terminal state; the lock was released or swept and capacity
			// may have been reassigned.  Checkout must restart.
			return ErrLockExpired
		}
		m, err := s.store.GetMatchForUpdate(ctx, b.MatchID)
		if err != nil {
			return err
		}
		if err := s.expireLocksTx(ctx, m); err != nil {
			return err
		}
		lock, ok := m.LockedSlots[lockID]
		if !ok || lock.BookingID != b.ID {
			// The pruned expiry (lock removal, FAILED booking) must
			// survive this attempt, so commit it and report the expiry
			// after the transaction instead of rolling it back.
			count, err := s.store.CountActiveSlots(ctx, m.ID)
			if err != nil {
				return err
			}
			m.BookedSlots = count
			if err := s.store.SaveMatch(ctx, m); err != nil {
				return err
			}
			lockGone = true
			return nil
		}
		if err := s.store.CreateBookingSlots(ctx, b.ID, m.ID, lock.SlotNumbers); err != nil {
			return err
		}
		delete(m.LockedSlots, lockID)
		count, err := s.store.CountActiveSlots(ctx, m.ID)
		if err != nil {
			return err
		}
		m.BookedSlots = count
		if err := s.store.SaveMatch(ctx, m); err != nil {
			return err
		}
		if discountCents > 0 && discountCents < b.TotalAmountCents {
			b.TotalAmountCents -= discountCents
		}
		b.Status = model.BookingConfirmed
		b.PaymentStatus = "PAID"
		if err := s.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		confirmed, slotNumbers = b, lock.SlotNumbers
		return nil
	})
	if err != nil {
		return nil, err
	}
	if lockGone {
		return nil, ErrLockExpired
	}
	if !already {
		if err := s.events.PublishBookingConfirmed(ctx, BookingConfirmed{
			BookingID:        confirmed.ID,
			MatchID:          confirmed.MatchID,
			UserID:           confirmed.UserID,
			SlotNumbers:      slotNumbers,
			TotalAmountCents: confirmed.TotalAmountCents,
			ConfirmedAt:      s.clock.Now().Format(time.RFC3339),
		}); err != nil {
			s.log.WithError(err).Warn("booking.confirmed publish failed")
		}
	}
	return confirmed, nil
}

// CancelBooking reverses a booking.  A confirmed booking has its slots
// marked RELEASED; a still-pending one simply loses its lock.  Freed
// capacity returns to the regular pool and the waitlist is offered it
// in a follow-up transaction.  Cancelling an already-cancelled booking
// is a no-op.
func (s *Service) CancelBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	var (
		cancelled *model.Booking
		matchID   uint64
		freed     int
	)
	err := s.withTx(ctx, func(ctx context.Context) error {
		b, err := s.store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if userID != 0 && b.UserID != userID {
			return ErrForbidden
		}
		if b.Status == model.BookingCancelled || b.Status == model.BookingFailed {
			cancelled = b
			return nil
		}
		m, err := s.store.GetMatchForUpdate(ctx, b.MatchID)
		if err != nil {
			return err
		}
		if b.Status == model.BookingConfirmed {
			numbers, err := s.store.ReleaseBookingSlots(ctx, b.ID)
			if err != nil {
				return err
			}
			freed = len(numbers)
		} else {
			// Pending checkout: drop the lock that belongs to this booking.
			for id, lock := range m.LockedSlots {
				if lock.BookingID == b.ID {
					delete(m.LockedSlots, id)
					freed = len(lock.SlotNumbers)
					break
				}
			}
		}
		count, err := s.store.CountActiveSlots(ctx, m.ID)
		if err != nil {
			return err
		}
		m.BookedSlots = count
		if err := s.store.SaveMatch(ctx, m); err != nil {
			return err
		}
		b.Status = model.BookingCancelled
		if err := s.store.UpdateBooking(ctx, b); err != nil {
			return err
		}
		cancelled, matchID = b, m.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if freed > 0 {
		s.promoteAfterFree(ctx, matchID, freed)
	}
	return cancelled, nil
}
