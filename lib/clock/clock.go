// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source of the billing server. Run manifests take
// their timestamps from Now, report dumps pause between batches with
// Sleep, and transient write failures back off with After.
type Clock interface {
	Now() time.Time

	// After delivers the time once d has elapsed, or at once when
	// d <= 0.
	After(d time.Duration) <-chan time.Time

	Sleep(d time.Duration)
}

// Real returns the wall clock.
func Real() Clock { return wall{} }

type wall struct{}

func (wall) Now() time.Time                         { return time.Now() }
func (wall) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (wall) Sleep(d time.Duration)                  { time.Sleep(d) }
