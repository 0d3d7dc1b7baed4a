package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

func TestJoinWaitlistValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 2, 1, 1000)
	ctx := context.Background()

	_, err := svc.JoinWaitlist(ctx, 1, 10, 0)
	require.ErrorIs(t, err, ErrInvalidRequest)
	// Larger than the buffered pool can ever hold.
	_, err = svc.JoinWaitlist(ctx, 1, 10, 4)
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.JoinWaitlist(ctx, 42, 10, 1)
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestJoinWaitlistDuplicate(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 2, 2, 1000)
	ctx := context.Background()

	_, err := svc.JoinWaitlist(ctx, 1, 10, 1)
	require.NoError(t, err)
	_, err = svc.JoinWaitlist(ctx, 1, 10, 1)
	require.ErrorIs(t, err, ErrAlreadyWaitlisted)
}

func TestJoinWaitlistGatedByBufferedPool(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 1, 1, 1000)
	ctx := context.Background()

	// One slot locked: regular pool is gone, buffered pool has one
	// place left.
	_, err := svc.AcquireLock(ctx, 1, 10, 1)
	require.NoError(t, err)

	entry, err := svc.JoinWaitlist(ctx, 1, 11, 1)
	require.NoError(t, err)
	require.Equal(t, model.WaitlistActive, entry.Status)

	_, err = svc.JoinWaitlist(ctx, 1, 12, 1)
	require.ErrorIs(t, err, ErrInsufficientWaitlist)
}

func TestLeaveWaitlist(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 2, 2, 1000)
	ctx := context.Background()

	entry, err := svc.JoinWaitlist(ctx, 1, 10, 1)
	require.NoError(t, err)

	require.NoError(t, svc.LeaveWaitlist(ctx, 1, 10))
	require.Equal(t, model.WaitlistCancelled, store.entryStatus(entry.ID))

	require.ErrorIs(t, svc.LeaveWaitlist(ctx, 1, 10), ErrEntryNotFound)
}

func TestPromoteFIFOWithAllOrNothingEntries(t *testing.T) {
	pub := &recordingPublisher{}
	svc, store, _ := newTestService(t, WithEvents(pub))
	seedMatch(store, 1, 4, 6, 1000)
	ctx := context.Background()

	h, err := svc.AcquireLock(ctx, 1, 10, 4)
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(ctx, h.BookingID, h.LockID, 10, 0)
	require.NoError(t, err)

	first, err := svc.JoinWaitlist(ctx, 1, 20, 3)
	require.NoError(t, err)
	second, err := svc.JoinWaitlist(ctx, 1, 21, 2)
	require.NoError(t, err)
	third, err := svc.JoinWaitlist(ctx, 1, 22, 1)
	require.NoError(t, err)

	// Cancelling the confirmed booking frees 4 slots.  The oldest
	// entry (3) fits, the next (2) does not fit the remaining budget
	// and stays, the third (1) fills the last slot.
	_, err = svc.CancelBooking(ctx, h.BookingID, 10)
	require.NoError(t, err)

	require.Equal(t, model.WaitlistPromoted, store.entryStatus(first.ID))
	require.Equal(t, model.WaitlistActive, store.entryStatus(second.ID))
	require.Equal(t, model.WaitlistPromoted, store.entryStatus(third.ID))

	require.Len(t, pub.promoted, 2)
	require.Equal(t, first.ID, pub.promoted[0].EntryID)
	require.Equal(t, third.ID, pub.promoted[1].EntryID)

	// Promoted users hold ordinary soft locks they still must confirm.
	m, err := store.GetMatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, m.LockedSlots, 2)
}

func TestPromoteNoopWithoutCapacity(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 2, 2, 1000)
	ctx := context.Background()

	_, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)
	entry, err := svc.JoinWaitlist(ctx, 1, 11, 1)
	require.NoError(t, err)

	promos, err := svc.Promote(ctx, 1, 0)
	require.NoError(t, err)
	require.Empty(t, promos)
	require.Equal(t, model.WaitlistActive, store.entryStatus(entry.ID))
}

func TestScenarioFullMatchWithWaitlistPromotion(t *testing.T) {
	// Capacity 3, buffer 2: three holds of one slot each fill the
	// match, a fourth is refused, the overflow user waits, and
	// cancelling the second hold hands its slot to the waiting user.
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 3, 2, 1000)
	ctx := context.Background()

	h1, err := svc.AcquireLock(ctx, 1, 10, 1)
	require.NoError(t, err)
	h2, err := svc.AcquireLock(ctx, 1, 11, 1)
	require.NoError(t, err)
	h3, err := svc.AcquireLock(ctx, 1, 12, 1)
	require.NoError(t, err)
	require.Equal(t, []int{1}, h1.SlotNumbers)
	require.Equal(t, []int{2}, h2.SlotNumbers)
	require.Equal(t, []int{3}, h3.SlotNumbers)

	_, err = svc.AcquireLock(ctx, 1, 13, 1)
	require.ErrorIs(t, err, ErrInsufficientCapacity)

	entry, err := svc.JoinWaitlist(ctx, 1, 13, 1)
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, h2.BookingID, 11)
	require.NoError(t, err)

	require.Equal(t, model.WaitlistPromoted, store.entryStatus(entry.ID))

	// The promoted user received a fresh lock on the freed slot 2.
	m, err := store.GetMatch(ctx, 1)
	require.NoError(t, err)
	var promotedLock *model.SlotLock
	for _, lock := range m.LockedSlots {
		if lock.HeldBy == 13 {
			l := lock
			promotedLock = &l
		}
	}
	require.NotNil(t, promotedLock)
	require.Equal(t, []int{2}, promotedLock.SlotNumbers)
}
