// Package testutil provides testing utilities for the Cadenza application.
package testutil

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	// Teardown may leave goroutines finishing a paced sleep that outlasts
	// goleak's built-in retry window; wait for them before the final check.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if goleak.Find(opts...) == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	goleak.VerifyNone(t, opts...)
}
