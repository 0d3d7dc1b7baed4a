package booking

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// LockHandle is returned to the caller after a successful acquisition.
// The client completes payment out-of-band and then confirms the
// booking with the lock id before ExpiresAt.
type LockHandle struct {
	LockID           string    `json:"lock_id"`
	BookingID        uint64    `json:"booking_id"`
	MatchID          uint64    `json:"match_id"`
	SlotNumbers      []int     `json:"slot_numbers"`
	TotalAmountCents uint32    `json:"total_amount_cents"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// AcquireLock places a temporary hold on slotCount slots and opens a
// PENDING booking for them.  The whole read-modify-write runs under
// the match row lock, so two simultaneous requests for the last N
// slots are serialized: the second sees the first's committed lock map
// and is rejected, never double-allocated.
func (s *Service) AcquireLock(ctx context.Context, matchID, userID uint64, slotCount int) (LockHandle, error) {
	if slotCount <= 0 {
		return LockHandle{}, ErrInvalidRequest
	}
	// Requests larger than the match itself are refused without taking
	// the row lock.
	if m, err := s.store.GetMatch(ctx, matchID); err != nil {
		return LockHandle{}, err
	} else if slotCount > m.PlayerCapacity {
		return LockHandle{}, ErrInvalidRequest
	}

	var handle LockHandle
	err := s.withTx(ctx, func(ctx context.Context) error {
		m, err := s.store.GetMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if err := s.expireLocksTx(ctx, m); err != nil {
			return err
		}
		avail, confirmed, err := s.availabilityTx(ctx, m)
		if err != nil {
			return err
		}
		if slotCount > avail.AvailableRegularSlots {
			return ErrInsufficientCapacity
		}
		handle, err = s.lockSlotsTx(ctx, m, userID, slotCount)
		if err != nil {
			return err
		}
		m.BookedSlots = confirmed
		return s.store.SaveMatch(ctx, m)
	})
	if err != nil {
		return LockHandle{}, err
	}
	return handle, nil
}

// ReleaseLock removes a soft lock and cancels its pending booking.
// Idempotent: a missing lock is not an error, since it may already
// have been consumed by confirmation or swept after expiry.  Freed
// capacity is offered to the waitlist.
func (s *Service) ReleaseLock(ctx context.Context, matchID uint64, lockID string) error {
	freed := 0
	err := s.withTx(ctx, func(ctx context.Context) error {
		m, err := s.store.GetMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		lock, ok := m.LockedSlots[lockID]
		if !ok {
			return nil
		}
		delete(m.LockedSlots, lockID)
		freed = len(lock.SlotNumbers)
		if err := s.failBookingTx(ctx, lock.BookingID, model.BookingCancelled); err != nil {
			return err
		}
		confirmed, err := s.store.CountActiveSlots(ctx, m.ID)
		if err != nil {
			return err
		}
		m.BookedSlots = confirmed
		return s.store.SaveMatch(ctx, m)
	})
	if err != nil {
		return err
	}
	if freed > 0 {
		s.promoteAfterFree(ctx, matchID, freed)
	}
	return nil
}

// lockSlotsTx allocates slot numbers, opens a PENDING booking and
// records the lock on the match.  The caller holds the row lock, has
// already checked availability and is responsible for SaveMatch.
// Shared by direct acquisition and waitlist promotion.
func (s *Service) lockSlotsTx(ctx context.Context, m *model.Match, userID uint64, slotCount int) (LockHandle, error) {
	numbers, err := s.allocateSlotsTx(ctx, m, slotCount)
	if err != nil {
		return LockHandle{}, err
	}
	b := &model.Booking{
		MatchID:          m.ID,
		UserID:           userID,
		Status:           model.BookingPending,
		TotalSlots:       slotCount,
		TotalAmountCents: uint32(slotCount) * m.SlotPriceCents,
	}
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return LockHandle{}, err
	}
	lockID := uuid.NewString()
	expires := s.clock.Now().Add(s.lockTTL)
	if m.LockedSlots == nil {
		m.LockedSlots = make(map[string]model.SlotLock)
	}
	m.LockedSlots[lockID] = model.SlotLock{
		SlotNumbers: numbers,
		HeldBy:      userID,
		BookingID:   b.ID,
		ExpiresAt:   expires,
	}
	return LockHandle{
		LockID:           lockID,
		BookingID:        b.ID,
		MatchID:          m.ID,
		SlotNumbers:      numbers,
		TotalAmountCents: b.TotalAmountCents,
		ExpiresAt:        expires,
	}, nil
}

// expireLocksTx drops lapsed locks from the match and marks their
// pending bookings FAILED.  Runs on every capacity-touching path so
// abandoned checkouts never block a live one, same as the sweep.
func (s *Service) expireLocksTx(ctx context.Context, m *model.Match) error {
	removed := m.PruneExpired(s.clock.Now())
	for _, lock := range removed {
		if err := s.failBookingTx(ctx, lock.BookingID, model.BookingFailed); err != nil {
			return err
		}
	}
	return nil
}

// failBookingTx moves a still-pending booking to the given terminal
// status.  Bookings already in a terminal state are left alone, which
// keeps release paths idempotent.
func (s *Service) failBookingTx(ctx context.Context, bookingID uint64, status string) error {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		if err == ErrBookingNotFound {
			return nil
		}
		return err
	}
	if b.Status != model.BookingPending {
		return nil
	}
	b.Status = status
	return s.store.UpdateBooking(ctx, b)
}

// allocateSlotsTx picks the n smallest slot numbers not used by an
// ACTIVE booking slot or an unexpired lock.  Deterministic so tests
// can assert exact numbers.
func (s *Service) allocateSlotsTx(ctx context.Context, m *model.Match, n int) ([]int, error) {
	active, err := s.store.ActiveSlotNumbers(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	used := make(map[int]bool, len(active))
	for _, num := range active {
		used[num] = true
	}
	for _, num := range m.LockedSlotNumbers(s.clock.Now()) {
		used[num] = true
	}
	numbers := make([]int, 0, n)
	for num := 1; num <= m.PlayerCapacity && len(numbers) < n; num++ {
		if !used[num] {
			numbers = append(numbers, num)
		}
	}
	if len(numbers) < n {
		// Availability said yes but the number space is exhausted; the
		// capacity invariant would be violated, so refuse.
		return nil, ErrInsufficientCapacity
	}
	sort.Ints(numbers)
	return numbers, nil
}

// promoteAfterFree runs waitlist promotion in its own transaction
// after a capacity-freeing commit.  Promotion failures are logged, not
// propagated: the freeing operation already succeeded and the next
// freeing event or sweep will retry.
func (s *Service) promoteAfterFree(ctx context.Context, matchID uint64, freed int) {
	if _, err := s.Promote(ctx, matchID, freed); err != nil {
		s.log.WithError(err).WithField("match_id", matchID).Warn("waitlist promotion failed")
	}
}
