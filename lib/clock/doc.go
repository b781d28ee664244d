// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the billing server's time-dependent code run
// against a fake clock in tests.
//
// A goroutine that sleeps on a [FakeClock] registers a timer. Tests
// wait for the timers they expect, then advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go streamer.Display(conn, report.Customer, path)
//	c.WaitForTimers(1)
//	c.Advance(10 * time.Millisecond)
package clock
