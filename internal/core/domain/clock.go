package domain

import (
	"sync"
	"time"
)

const DefaultRolloverHour = 5

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// DayClock answers "what day is it" for tracking purposes. Before
// RolloverHour the perceived day is still the previous calendar day, so a
// late night is tracked against the day it belongs to. A nil Location keeps
// whatever zone the Clock reports.
type DayClock struct {
	Clock        Clock
	Location     *time.Location
	RolloverHour int
}

func NewDayClock(clock Clock, rolloverHour int) *DayClock {
	return &DayClock{
		Clock:        clock,
		RolloverHour: rolloverHour,
	}
}

func (c *DayClock) now() time.Time {
	now := c.Clock.Now()
	if c.Location != nil {
		now = now.In(c.Location)
	}
	return now
}

func (c *DayClock) Today() Date {
	return DateOf(c.now())
}

func (c *DayClock) Yesterday() Date {
	return c.Today().PreviousDay()
}

func (c *DayClock) PerceivedDay() Date {
	now := c.now()
	if now.Hour() < c.RolloverHour {
		return DateOf(now).PreviousDay()
	}
	return DateOf(now)
}

// FixedClock is a Clock frozen at a single instant.
type FixedClock struct {
	mu sync.Mutex
	at time.Time
}

func NewFixedClock(at time.Time) *FixedClock {
	return &FixedClock{at: at}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *FixedClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = at
}

func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(d)
}
