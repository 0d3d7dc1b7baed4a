package booking

import (
	"context"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// Store is the persistence surface the booking core runs against.  The
// MySQL implementation lives in internal/repository; tests supply an
// in-memory implementation whose per-match mutex plays the part of the
// row lock.
//
// WithTx runs fn inside a transaction and commits when fn returns nil;
// any error rolls back every write made through the ctx it passed in.
// All other methods must be called with a ctx obtained from WithTx,
// except the read-only MatchIDsWithLocks used by the sweeper to pick
// its targets.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// GetMatch loads a match without locking.  Usable outside WithTx
	// for validation and display reads.
	GetMatch(ctx context.Context, matchID uint64) (*model.Match, error)

	// GetMatchForUpdate loads the match row under an exclusive row lock
	// (SELECT ... FOR UPDATE).  Concurrent transactions for the same
	// match queue here; that is the backpressure the design wants.
	GetMatchForUpdate(ctx context.Context, matchID uint64) (*model.Match, error)

	// SaveMatch writes the capacity fields and the lock map back,
	// conditioned on the version the match was read at.  A version
	// mismatch returns ErrConcurrentModification.
	SaveMatch(ctx context.Context, m *model.Match) error

	// MatchIDsWithLocks lists matches whose lock map is non-empty.
	MatchIDsWithLocks(ctx context.Context) ([]uint64, error)

	// CountActiveSlots recomputes the confirmed slot count from ACTIVE
	// booking_slots rows.  The source of truth; never the denormalized
	// counter.
	CountActiveSlots(ctx context.Context, matchID uint64) (int, error)

	// ActiveSlotNumbers returns the slot numbers of ACTIVE booking
	// slots for the match, used for smallest-unused allocation.
	ActiveSlotNumbers(ctx context.Context, matchID uint64) ([]int, error)

	CreateBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, bookingID uint64) (*model.Booking, error)
	UpdateBooking(ctx context.Context, b *model.Booking) error
	CreateBookingSlots(ctx context.Context, bookingID, matchID uint64, slotNumbers []int) error
	ActiveSlotsByBooking(ctx context.Context, bookingID uint64) ([]model.BookingSlot, error)

	// ReleaseBookingSlots marks the booking's ACTIVE slots RELEASED and
	// returns the freed slot numbers.
	ReleaseBookingSlots(ctx context.Context, bookingID uint64) ([]int, error)

	CreateWaitlistEntry(ctx context.Context, e *model.WaitlistEntry) error

	// ActiveWaitlist returns ACTIVE entries for the match ordered by
	// created_at ascending (FIFO promotion order).
	ActiveWaitlist(ctx context.Context, matchID uint64) ([]model.WaitlistEntry, error)

	// WaitlistReserved sums slots_required over ACTIVE entries.
	WaitlistReserved(ctx context.Context, matchID uint64) (int, error)

	ActiveWaitlistEntryByUser(ctx context.Context, matchID, userID uint64) (*model.WaitlistEntry, error)
	UpdateWaitlistStatus(ctx context.Context, entryID uint64, status string) error
}
