package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetAvailabilityEmptyMatch(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 5, 2, 1500)

	av, err := svc.GetAvailability(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 5, av.AvailableRegularSlots)
	require.Equal(t, 7, av.AvailableWaitlistSlots)
	require.Equal(t, uint64(1), av.MatchID)
}

func TestGetAvailabilityMatchNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetAvailability(context.Background(), 42)
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestAvailabilityCountsLocksAndConfirmed(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedMatch(store, 1, 5, 2, 1500)
	ctx := context.Background()

	h1, err := svc.AcquireLock(ctx, 1, 10, 2)
	require.NoError(t, err)
	av, err := svc.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, av.AvailableRegularSlots)
	require.Equal(t, 5, av.AvailableWaitlistSlots)

	_, err = svc.ConfirmBooking(ctx, h1.BookingID, h1.LockID, 10, 0)
	require.NoError(t, err)
	av, err = svc.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, av.AvailableRegularSlots)
	require.Equal(t, 5, av.AvailableWaitlistSlots)
}

func TestAvailabilityIgnoresExpiredLocks(t *testing.T) {
	svc, store, clk := newTestService(t, WithLockTTL(time.Minute))
	seedMatch(store, 1, 4, 2, 1000)
	ctx := context.Background()

	_, err := svc.AcquireLock(ctx, 1, 10, 3)
	require.NoError(t, err)
	av, err := svc.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, av.AvailableRegularSlots)

	// Past the TTL the locked capacity is visible again even though no
	// sweep has removed the lock yet.
	clk.Advance(2 * time.Minute)
	av, err = svc.GetAvailability(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, av.AvailableRegularSlots)
	require.Equal(t, 6, av.AvailableWaitlistSlots)
}
