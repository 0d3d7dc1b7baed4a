package model

import "time"

// Booking statuses.  A booking is created PENDING at checkout start and
// transitions exactly once to CONFIRMED, CANCELLED or FAILED.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingFailed    = "FAILED"
)

// Booking slot statuses.  Slots are created ACTIVE on confirmation and
// soft-deleted to RELEASED on cancellation.
const (
	SlotActive   = "ACTIVE"
	SlotReleased = "RELEASED"
)

// Booking records a user's purchase of one or more slots in a match.
// It is opened when a soft lock is acquired and finalised when the
// payment collaborator reports an outcome.
//
// Fields:
//  ID               – primary key identifier.
//  MatchID          – match being booked.
//  UserID           – user who made the booking.
//  Status           – PENDING, CONFIRMED, CANCELLED or FAILED.
//  PaymentStatus    – status reported by the payment collaborator.
//  TotalSlots       – number of slots in the booking.
//  TotalAmountCents – total price in cents after any discount.
//  PaymentRef       – external payment reference, if any.
type Booking struct {
	ID               uint64    // bookings.id
	MatchID          uint64    // bookings.match_id
	UserID           uint64    // bookings.user_id
	Status           string    // bookings.status
	PaymentStatus    string    // bookings.payment_status
	TotalSlots       int       // bookings.total_slots
	TotalAmountCents uint32    // bookings.total_amount_cents
	PaymentRef       *string   // bookings.payment_ref (nullable)
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
}

// BookingSlot is one confirmed slot in a match.  Slot numbers are
// unique among ACTIVE slots of the same match.  Rows are created only
// by booking confirmation, never speculatively.
type BookingSlot struct {
	ID         uint64    // booking_slots.id
	BookingID  uint64    // booking_slots.booking_id
	MatchID    uint64    // booking_slots.match_id
	SlotNumber int       // booking_slots.slot_number
	Status     string    // booking_slots.status
	CreatedAt  time.Time // booking_slots.created_at
}
