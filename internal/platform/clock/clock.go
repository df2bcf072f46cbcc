package clock

import "time"

// Clock is an injectable time source. Refund, availability, and
// reconciliation logic all read time through it so tests can pin the clock.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a Clock pinned to a settable instant, for tests.
type Fixed struct {
	t time.Time
}

// NewFixed creates a Fixed clock at the given instant.
func NewFixed(t time.Time) *Fixed { return &Fixed{t: t} }

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time { return f.t }

// Set moves the pinned instant.
func (f *Fixed) Set(t time.Time) { f.t = t }

// Advance moves the pinned instant forward by d.
func (f *Fixed) Advance(d time.Duration) { f.t = f.t.Add(d) }
