package core

import (
	"time"

	"github.com/loov/hrtime"
)

// Clock measures elapsed time with the high resolution timer.
type Clock struct {
	startTime time.Duration
	lastTick  time.Duration
	elapsed   time.Duration
	running   bool
}

func NewClock() *Clock {
	return &Clock{}
}

// Starts the clock. Resets elapsed time.
func (c *Clock) Start() {
	now := hrtime.Now()
	c.startTime = now
	c.lastTick = now
	c.elapsed = 0
	c.running = true
}

// Updates the clock. Has no effect on stopped clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = hrtime.Since(c.startTime)
	}
}

// Tick returns the time passed since the previous Tick (or Start).
func (c *Clock) Tick() time.Duration {
	if !c.running {
		return 0
	}
	now := hrtime.Now()
	delta := now - c.lastTick
	c.lastTick = now
	return delta
}

// Stops the clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}
