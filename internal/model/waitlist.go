package model

import "time"

// Waitlist entry statuses.
const (
	WaitlistActive    = "ACTIVE"
	WaitlistPromoted  = "PROMOTED"
	WaitlistExpired   = "EXPIRED"
	WaitlistCancelled = "CANCELLED"
)

// WaitlistEntry records overflow demand for a full match.  Entries are
// promoted oldest first when capacity returns to the pool; promotion is
// all-or-nothing for the entry's SlotsRequired.
//
// Fields:
//  ID            – primary key identifier.
//  MatchID       – match the user is waiting for.
//  UserID        – waiting user.
//  SlotsRequired – number of slots needed to promote this entry.
//  Status        – ACTIVE, PROMOTED, EXPIRED or CANCELLED.
//  CreatedAt     – defines promotion order (FIFO).
type WaitlistEntry struct {
	ID            uint64    // waitlist_entries.id
	MatchID       uint64    // waitlist_entries.match_id
	UserID        uint64    // waitlist_entries.user_id
	SlotsRequired int       // waitlist_entries.slots_required
	Status        string    // waitlist_entries.status
	CreatedAt     time.Time // waitlist_entries.created_at
}
