package messagebus

import (
	"testing"
	"time"
)

// waitUntil polls cond until it holds or the timeout elapses.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// settles asserts cond keeps holding for the whole window, catching
// deliveries that should not happen.
func settles(t *testing.T, window time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if !cond() {
			t.Fatalf("condition violated within %v", window)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
