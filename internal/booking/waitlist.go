package booking

import (
	"context"
	"time"

	"github.com/iliyamo/match-slot-booking/internal/model"
)

// Promotion pairs a promoted waitlist entry with the fresh soft lock
// it received.  The promoted user must complete checkout within the
// normal TTL like any other lock holder.
type Promotion struct {
	Entry  model.WaitlistEntry `json:"entry"`
	Handle LockHandle          `json:"handle"`
}

// JoinWaitlist records overflow demand for a full match.  Admission is
// gated by the buffered pool: the entry is rejected when even
// playerCapacity+bufferCapacity cannot absorb it alongside confirmed
// slots, unexpired locks and earlier waitlist reservations.
func (s *Service) JoinWaitlist(ctx context.Context, matchID, userID uint64, slotsRequired int) (*model.WaitlistEntry, error) {
	if slotsRequired <= 0 {
		return nil, ErrInvalidRequest
	}
	var entry *model.WaitlistEntry
	err := s.withTx(ctx, func(ctx context.Context) error {
		m, err := s.store.GetMatchForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if slotsRequired > m.PlayerCapacity+m.BufferCapacity {
			return ErrInvalidRequest
		}
		if existing, err := s.store.ActiveWaitlistEntryByUser(ctx, matchID, userID); err != nil {
			return err
		} else if existing != nil {
			return ErrAlreadyWaitlisted
		}
		if err := s.expireLocksTx(ctx, m); err != nil {
			return err
		}
		avail, _, err := s.availabilityTx(ctx, m)
		if err != nil {
			return err
		}
		if slotsRequired > avail.AvailableWaitlistSlots {
			return ErrInsufficientWaitlist
		}
		entry = &model.WaitlistEntry{
			MatchID:       matchID,
			UserID:        userID,
			SlotsRequired: slotsRequired,
			Status:        model.WaitlistActive,
			CreatedAt:     s.clock.Now(),
		}
		return s.store.CreateWaitlistEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// LeaveWaitlist cancels the caller's ACTIVE entry for a match.
func (s *Service) LeaveWaitlist(ctx context.Context, matchID, userID uint64) error {
	return s.withTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetMatchForUpdate(ctx, matchID); err != nil {
			return err
		}
		entry, err := s.store.ActiveWaitlistEntryByUser(ctx, matchID, userID)
		if err != nil {
			return err
		}
		if entry == nil {
			return ErrEntryNotFound
		}
		return s.store.UpdateWaitlistStatus(ctx, entry.ID, model.WaitlistCancelled)
	})
}

// Promote offers freed capacity to the waitlist, oldest entries first.
// An entry is promoted only when its whole SlotsRequired fits in the
// remaining budget; entries that do not fit stay ACTIVE for the next
// freeing event.  Each promoted entry gets a fresh soft lock and a
// PENDING booking through the same allocation path as direct checkout.
func (s *Service) Promote(ctx context.Context, matchID uint64, freedSlotCount int) ([]Promotion, error) {
	var promotions []Promotion
	err := s.withTx(ctx, func(ctx context.Context) error {
		promotions = promotions[:0]
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
		budget := freedSlotCount
		if budget <= 0 || budget > avail.AvailableRegularSlots {
			budget = avail.AvailableRegularSlots
		}
		if budget == 0 {
			return nil
		}
		entries, err := s.store.ActiveWaitlist(ctx, matchID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.SlotsRequired > budget {
				continue
			}
			handle, err := s.lockSlotsTx(ctx, m, e.UserID, e.SlotsRequired)
			if err != nil {
				return err
			}
			if err := s.store.UpdateWaitlistStatus(ctx, e.ID, model.WaitlistPromoted); err != nil {
				return err
			}
			e.Status = model.WaitlistPromoted
			promotions = append(promotions, Promotion{Entry: e, Handle: handle})
			budget -= e.SlotsRequired
			if budget == 0 {
				break
			}
		}
		if len(promotions) == 0 {
			return nil
		}
		m.BookedSlots = confirmed
		return s.store.SaveMatch(ctx, m)
	})
	if err != nil {
		return nil, err
	}
	for _, p := range promotions {
		if err := s.events.PublishWaitlistPromoted(ctx, WaitlistPromoted{
			EntryID:     p.Entry.ID,
			MatchID:     p.Entry.MatchID,
			UserID:      p.Entry.UserID,
			BookingID:   p.Handle.BookingID,
			LockID:      p.Handle.LockID,
			SlotNumbers: p.Handle.SlotNumbers,
			ExpiresAt:   p.Handle.ExpiresAt.Format(time.RFC3339),
		}); err != nil {
			s.log.WithError(err).Warn("waitlist.promoted publish failed")
		}
	}
	return promotions, nil
}
