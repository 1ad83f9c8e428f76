// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations reliquery performs so that
// catalog timestamps and reconciliation deadlines are deterministic
// under test. Production code injects Real(); tests inject Fake().
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after d
	// elapses. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a Timer that delivers on C after d elapses.
	// Stop releases the timer early, which matters for callers that
	// usually finish before the deadline.
	NewTimer(d time.Duration) *Timer
}

// Timer is a single pending deadline.
type Timer struct {
	// C delivers the fire time. Buffered with capacity 1.
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the Timer from firing. Returns true if the call stops
// the timer, false if it already fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
