package model

import "time"

// Match statuses.  A match accepts bookings only while SCHEDULED.
const (
	MatchScheduled = "SCHEDULED"
	MatchCancelled = "CANCELLED"
	MatchFinished  = "FINISHED"
)

// SlotLock is a temporary hold on a set of slot numbers taken during
// checkout.  Locks live inside the match row (the locked_slots JSON
// column) so that the row lock on the match serializes every change
// to them.  A lock either becomes a confirmed booking before
// ExpiresAt or is swept and its capacity returned to the pool.
//
// Fields:
//  SlotNumbers – slot numbers reserved by this lock (1..capacity).
//  HeldBy      – user who holds the lock.
//  BookingID   – the PENDING booking opened at checkout start.
//  ExpiresAt   – when the lock lapses.
type SlotLock struct {
	SlotNumbers []int     `json:"slot_numbers"`
	HeldBy      uint64    `json:"held_by"`
	BookingID   uint64    `json:"booking_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the lock has lapsed at the given instant.
func (l SlotLock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// Match represents a scheduled match with fixed slot capacity.  The
// capacity fields and the lock map are the shared mutable state of the
// booking core; all writers must hold the row lock on this record.
//
// Fields:
//  ID             – primary key identifier.
//  Title          – display name of the match.
//  StartsAt       – when the match begins.
//  SlotPriceCents – price per slot in cents.
//  PlayerCapacity – fixed regular capacity.
//  BufferCapacity – extra capacity reachable only through the waitlist.
//  BookedSlots    – denormalized count of ACTIVE booking slots.  A cache
//                   refreshed on every mutation; the count of ACTIVE
//                   booking_slots rows is the source of truth.
//  LockedSlots    – soft locks keyed by lock id.
//  Version        – bumped on every capacity write; writes are
//                   conditioned on the version they read.
//  Status         – current state of the match.
type Match struct {
	ID             uint64              // matches.id
	Title          string              // matches.title
	StartsAt       time.Time           // matches.starts_at
	SlotPriceCents uint32              // matches.slot_price_cents
	PlayerCapacity int                 // matches.player_capacity
	BufferCapacity int                 // matches.buffer_capacity
	BookedSlots    int                 // matches.booked_slots
	LockedSlots    map[string]SlotLock // matches.locked_slots (JSON)
	Version        uint64              // matches.version
	Status         string              // matches.status
	CreatedAt      time.Time           // matches.created_at
	UpdatedAt      time.Time           // matches.updated_at
}

// LockedCount returns the number of slot numbers held by unexpired
// locks at the given instant.
func (m *Match) LockedCount(now time.Time) int {
	n := 0
	for _, l := range m.LockedSlots {
		if !l.Expired(now) {
			n += len(l.SlotNumbers)
		}
	}
	return n
}

// LockedSlotNumbers returns every slot number held by an unexpired
// lock.  Order is not defined; callers that need determinism must sort.
func (m *Match) LockedSlotNumbers(now time.Time) []int {
	var nums []int
	for _, l := range m.LockedSlots {
		if !l.Expired(now) {
			nums = append(nums, l.SlotNumbers...)
		}
	}
	return nums
}

// PruneExpired removes lapsed locks from the map and returns the
// removed entries keyed by lock id.  An empty map stays non-nil so the
// JSON column round-trips as {} rather than null.
func (m *Match) PruneExpired(now time.Time) map[string]SlotLock {
	removed := make(map[string]SlotLock)
	for id, l := range m.LockedSlots {
		if l.Expired(now) {
			removed[id] = l
			delete(m.LockedSlots, id)
		}
	}
	return removed
}
