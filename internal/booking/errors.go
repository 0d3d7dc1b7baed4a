// Package booking implements the capacity core of the service: the
// availability ledger, the soft lock manager used during checkout, the
// booking finalizer and the waitlist coordinator.  All capacity
// decisions for a match are serialized by a row lock on the match
// record; the Store interface is the only way the package touches
// persistent state.
package booking

import "errors"

// Sentinel errors surfaced by the booking core.  Handlers translate
// these into HTTP responses; everything else is treated as an internal
// error.  All of them are raised only after the surrounding
// transaction has rolled back, so callers never observe partial
// capacity changes.
var (
	// ErrInvalidRequest rejects malformed input (zero or negative slot
	// counts, requests exceeding the match's total capacity) before any
	// lock attempt.  Not retryable.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInsufficientCapacity means the regular pool cannot satisfy the
	// request.  Expected under load; callers choose the waitlist.
	ErrInsufficientCapacity = errors.New("insufficient capacity")

	// ErrInsufficientWaitlist means even the buffered pool cannot absorb
	// the waitlist join.
	ErrInsufficientWaitlist = errors.New("insufficient waitlist capacity")

	// ErrAlreadyWaitlisted rejects a second ACTIVE waitlist entry for
	// the same user and match.
	ErrAlreadyWaitlisted = errors.New("already waitlisted")

	// ErrLockExpired means the soft lock was consumed, released or swept
	// before confirmation.  Retryable by restarting checkout; stale
	// locks are never resurrected.
	ErrLockExpired = errors.New("lock expired")

	// ErrConcurrentModification reports a version mismatch on a write.
	// The row lock makes this unreachable on the normal paths; it exists
	// as a guard for code that bypasses the lock.  Retryable once after
	// a re-read.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrTxTimeout wraps a transaction that hit its deadline.  The
	// database has already rolled back, so the attempt is equivalent to
	// a release with zero partial effect.
	ErrTxTimeout = errors.New("transaction timeout")

	// ErrMatchNotFound, ErrBookingNotFound and ErrEntryNotFound report
	// missing records.
	ErrMatchNotFound   = errors.New("match not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrEntryNotFound   = errors.New("waitlist entry not found")

	// ErrForbidden is returned when a caller operates on a booking or
	// waitlist entry they do not own.
	ErrForbidden = errors.New("forbidden")
)
