// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The catalog stamps created and last-modified values with Now, and
// the reconciliation engine bounds each backend snapshot with a
// NewTimer deadline. Production wiring passes Real(); tests pass
// Fake() and drive time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go func() { <-c.After(30 * time.Second); close(done) }()
//	c.WaitForTimers(1)
//	c.Advance(30 * time.Second)
package clock
