package booking

import "context"

// BookingConfirmed is emitted after a booking commit so downstream
// consumers can log, notify or feed analytics without querying the
// primary database.
type BookingConfirmed struct {
	BookingID        uint64 `json:"booking_id"`
	MatchID          uint64 `json:"match_id"`
	UserID           uint64 `json:"user_id"`
	SlotNumbers      []int  `json:"slot_numbers"`
	TotalAmountCents uint32 `json:"total_amount_cents"`
	ConfirmedAt      string `json:"confirmed_at"`
}

// WaitlistPromoted is emitted when a waitlist entry receives a fresh
// soft lock.  The user still has to complete checkout before the lock
// expires.
type WaitlistPromoted struct {
	EntryID     uint64 `json:"entry_id"`
	MatchID     uint64 `json:"match_id"`
	UserID      uint64 `json:"user_id"`
	BookingID   uint64 `json:"booking_id"`
	LockID      string `json:"lock_id"`
	SlotNumbers []int  `json:"slot_numbers"`
	ExpiresAt   string `json:"expires_at"`
}

// EventPublisher delivers domain events to the broker.  Publishing
// happens after the owning transaction commits and failures are logged
// and swallowed; events never affect capacity accounting.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev BookingConfirmed) error
	PublishWaitlistPromoted(ctx context.Context, ev WaitlistPromoted) error
}

// NopPublisher discards events.  Used in tests and when the broker is
// not configured.
type NopPublisher struct{}

func (NopPublisher) PublishBookingConfirmed(context.Context, BookingConfirmed) error { return nil }
func (NopPublisher) PublishWaitlistPromoted(context.Context, WaitlistPromoted) error { return nil }
