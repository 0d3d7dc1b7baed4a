package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

func TestConfirmBooking(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store, _ := newTestService(t, WithEvents(pub))
	seedMatch(store, 1, 4, 0, 2500)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)

	b, err := svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, b.Status)
	require.Equal(t, "PAID", b.PaymentStatus)
	require.Equal(t, uint32(5000), b.TotalAmountCents)

	slots, err := store.ActiveSlotsByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	m, err := store.GetMatch(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, m.LockedSlots)
	require.Equal(t, 2, m.BookedSlots)

	require.Equal(t, 1, pub.confirmedCount())
	require.Equal(t, []int{1, 2}, pub.confirmed[0].SlotNumbers)
}

func TestConfirmBookingIdempotent(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store, _ := newTestService(t, WithEvents(pub))
	seedMatch(store, 1, 4, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 1)
	require.NoError(t, err)

	first, err := svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.NoError(t, err)
	// Duplicate webhook delivery: same booking back, no new slots, no
	// second event.
	second, err := svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.TotalAmountCents, second.TotalAmountCents)

	count, err := store.CountActiveSlots(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, 1, pub.confirmedCount())
}

func TestConfirmBookingDiscount(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 4, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)
	b, err := svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 500)
	require.NoError(t, err)
	require.Equal(t, uint32(1500), b.TotalAmountCents)

	// A discount that would wipe out the total is ignored.
	h2, err := svc.AcquireLock(ctx, 1, 11, 1)
	require.NoError(t, err)
	b2, err := svc.ConfirmBooking(ctx, h2.BookingID, h2.LockID, 11, 5000)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), b2.TotalAmountCents)
}

func TestConfirmBookingWrongUser(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 4, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 1)
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 99, 0)
	require.ErrorIs(t, err, ErrForbidden)

	// Trusted callers pass user 0 and skip the ownership check.
	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 0, 0)
	require.NoError(t, err)
}

func TestConfirmBookingAfterExpiry(t *testing.T) {
	svc, store, clk := newTestService(t, WithLockTTL(time.Minute))
	seedMatch(store, 1, 4, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)

	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.ErrorIs(t, err, ErrLockExpired)

	// The failed attempt must leave the expiry committed, not rolled
	// back: the booking is FAILED and the lapsed lock is gone.
	require.Equal(t, model.BookingFailed, store.bookingStatus(h.BookingID))
	m, err := store.GetMatch(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, m.LockedSlots)

	count, err := store.CountActiveSlots(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, count)

	// Retrying confirmation keeps reporting the expiry.
	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.ErrorIs(t, err, ErrLockExpired)
}

func TestConfirmBookingUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.ConfirmBooking(context.Background(), 77, "some-lock", 10, 0)
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelConfirmedBookingReleasesSlots(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 3, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.NoError(t, err)

	b, err := svc.CancelBooking(ctx, h.BookingID, 10)
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, b.Status)

	av, err := svc.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, av.AvailableRegularSlots)

	// Repeat cancellation is a no-op.
	again, err := svc.CancelBooking(ctx, h.BookingID, 10)
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, again.Status)
}

func TestCancelPendingBookingDropsLock(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 3, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, h.BookingID, 10)
	require.NoError(t, err)

	m, err := store.GetMatch(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, m.LockedSlots)

	// The lock is gone, so confirmation can no longer succeed.
	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.ErrorIs(t, err, ErrLockExpired)
}

func TestCancelBookingWrongUser(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 3, 0, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 1)
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, h.BookingID, 99)
	require.ErrorIs(t, err, ErrForbidden)
}
