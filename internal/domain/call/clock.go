package call

import "time"

// Clock abstracts time so record transitions can be tested against fixed
// instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FrozenClock returns a fixed instant until advanced.
type FrozenClock struct {
	Instant time.Time
}

func (c *FrozenClock) Now() time.Time { return c.Instant }

func (c *FrozenClock) Advance(d time.Duration) { c.Instant = c.Instant.Add(d) }

var clock Clock = systemClock{}

// SetClock swaps the package clock. Tests must restore it with ResetClock.
func SetClock(c Clock) { clock = c }

// ResetClock restores the system clock.
func ResetClock() { clock = systemClock{} }
