package booking

import (
	"context"
	"time"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// Availability is the public view of a match's remaining capacity.
type Availability struct {
	MatchID                uint64 `json:"match_id"`
	PlayerCapacity         int    `json:"player_capacity"`
	BufferCapacity         int    `json:"buffer_capacity"`
	AvailableRegularSlots  int    `json:"available_regular_slots"`
	AvailableWaitlistSlots int    `json:"available_waitlist_slots"`
}

// computeAvailability derives the two availability counters from the
// match capacity fields, the recomputed confirmed count and the
// waitlist reservation total.  Expired locks are ignored even before a
// sweep removes them, so their capacity is visible as soon as the TTL
// elapses.
func computeAvailability(m *model.Match, confirmed, waitlistReserved int, now time.Time) Availability {
	locked := m.LockedCount(now)
	regular := m.PlayerCapacity - confirmed - locked
	if regular < 0 {
		regular = 0
	}
	waitlist := m.PlayerCapacity + m.BufferCapacity - confirmed - locked - waitlistReserved
	if waitlist < 0 {
		waitlist = 0
	}
	return Availability{
		MatchID:                m.ID,
		PlayerCapacity:         m.PlayerCapacity,
		BufferCapacity:         m.BufferCapacity,
		AvailableRegularSlots:  regular,
		AvailableWaitlistSlots: waitlist,
	}
}

// availabilityTx recomputes availability inside an open transaction so
// the decision that follows it cannot race a concurrent writer.
func (s *Service) availabilityTx(ctx context.Context, m *model.Match) (Availability, int, error) {
	confirmed, err := s.store.CountActiveSlots(ctx, m.ID)
	if err != nil {
		return Availability{}, 0, err
	}
	reserved, err := s.store.WaitlistReserved(ctx, m.ID)
	if err != nil {
		return Availability{}, 0, err
	}
	return computeAvailability(m, confirmed, reserved, s.clock.Now()), confirmed, nil
}

// GetAvailability reports the open regular and waitlist slots for a
// match.  It runs in its own transaction so the counts come from a
// single snapshot; the denormalized booked_slots counter is not
// consulted.
func (s *Service) GetAvailability(ctx context.Context, matchID uint64) (Availability, error) {
	var avail Availability
	err := s.withTx(ctx, func(ctx context.Context) error {
		m, err := s.store.GetMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		avail, _, err = s.availabilityTx(ctx, m)
		return err
	})
	if err != nil {
		return Availability{}, err
	}
	return avail, nil
}
