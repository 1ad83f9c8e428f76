// Copyright 2026 The Reliquery Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by tests that wait on
// goroutines.
package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the helpers use.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed.
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, format string, args ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", fmt.Sprintf(format, args...))
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, fmt.Sprintf(format, args...))
	}
	panic("unreachable")
}
