// Package clock abstracts time.Now so services and the sweeper can be
// tested against a fixed or stepped clock.
package clock

import "time"

// Clock supplies the current time.  All times are UTC.
type Clock interface {
	Now() time.Time
}

// Real is the wall clock.
type Real struct{}

// Now returns the current UTC time.
func (Real) Now() time.Time { return time.Now().UTC() }

// Fake is a manually controlled clock for tests.
type Fake struct {
	T time.Time
}

// Now returns the fake's current instant.
func (f *Fake) Now() time.Time { return f.T }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) { f.T = f.T.Add(d) }
