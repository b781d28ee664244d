// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock that moves only when Advance is called. It is
// safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	changed *sync.Cond

	// timers is ordered by deadline; equal deadlines keep
	// registration order.
	timers []timer
}

type timer struct {
	deadline time.Time
	fire     chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a timer for d from now. A non-positive d fires at
// once and registers nothing.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	fire := make(chan time.Time, 1)
	if d <= 0 {
		fire <- c.now
		return fire
	}

	deadline := c.now.Add(d)
	index, _ := slices.BinarySearchFunc(c.timers, deadline, func(t timer, target time.Time) int {
		if t.deadline.After(target) {
			return 1
		}
		return -1
	})
	c.timers = slices.Insert(c.timers, index, timer{deadline: deadline, fire: fire})
	c.changed.Broadcast()
	return fire
}

// Sleep blocks until the clock has been advanced by d.
func (c *FakeClock) Sleep(d time.Duration) {
	if d > 0 {
		<-c.After(d)
	}
}

// Advance moves the clock forward by d and fires every timer whose
// deadline has been reached, earliest first.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	due := 0
	for due < len(c.timers) && !c.timers[due].deadline.After(now) {
		due++
	}
	fired := slices.Clone(c.timers[:due])
	c.timers = slices.Delete(c.timers, 0, due)
	c.mu.Unlock()

	for _, t := range fired {
		t.fire <- now
	}
}

// WaitForTimers blocks until at least n timers are pending. Tests call
// it before Advance so a goroutine's Sleep is registered first.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of timers that have not fired.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
