/*
DESCRIPTION
  observer.go provides the Observer interface through which a decoder
  reports per picture events, and Counter, an Observer accumulating them.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package decoder

import (
	"sync"
	"time"
)

// Observer receives decoder events. Implementations must be safe for
// concurrent use if shared between decoders.
type Observer interface {
	// Picture is called once per Render with the time taken and its
	// result.
	Picture(p Profile, d time.Duration, err error)

	// Timeout is called when the engine fails to complete within the wait
	// timeout.
	Timeout()

	// EngineError is called with a nonzero engine error register value.
	EngineError(code uint32)

	// Resync is called when decoding resumes at the video packet starting
	// with macroblock mb.
	Resync(mb int)
}

// Nop is an Observer that does nothing.
type Nop struct{}

func (Nop) Picture(Profile, time.Duration, error) {}
func (Nop) Timeout()                              {}
func (Nop) EngineError(uint32)                    {}
func (Nop) Resync(int)                            {}

// Stats holds the totals accumulated by a Counter.
type Stats struct {
	Pictures     int
	Errors       int
	Timeouts     int
	EngineErrors int
	Resyncs      int
	Durations    []time.Duration
}

// Counter is an Observer that accumulates Stats.
type Counter struct {
	mu sync.Mutex
	s  Stats
}

// Picture implements Observer.
func (c *Counter) Picture(_ Profile, d time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Pictures++
	if err != nil {
		c.s.Errors++
	}
	c.s.Durations = append(c.s.Durations, d)
}

// Timeout implements Observer.
func (c *Counter) Timeout() {
	c.mu.Lock()
	c.s.Timeouts++
	c.mu.Unlock()
}

// EngineError implements Observer.
func (c *Counter) EngineError(uint32) {
	c.mu.Lock()
	c.s.EngineErrors++
	c.mu.Unlock()
}

// Resync implements Observer.
func (c *Counter) Resync(int) {
	c.mu.Lock()
	c.s.Resyncs++
	c.mu.Unlock()
}

// Stats returns a copy of the accumulated totals.
func (c *Counter) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.s
	s.Durations = append([]time.Duration(nil), c.s.Durations...)
	return s
}
