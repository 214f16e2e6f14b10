// Package system provides the wall clock used outside of tests.
package system

import "time"

// Clock implements web.Clock on top of time.Now.
type Clock struct {
	loc *time.Location
}

// New returns a Clock that reports UTC times.
func New() *Clock {
	return &Clock{loc: time.UTC}
}

// NewIn returns a Clock that reports times in loc; nil means UTC.
func NewIn(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *Clock) Now() time.Time {
	if c == nil || c.loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.loc)
}
