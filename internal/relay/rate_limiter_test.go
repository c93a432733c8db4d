package relay

import (
	"testing"
	"time"
)

// TestRateLimiterAllowsBurst verifies that a fresh limiter allows exactly
// the configured burst before denying.
func TestRateLimiterAllowsBurst(t *testing.T) {
	limiter := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !limiter.allow() {
			t.Fatalf("allow() denied request %d within burst", i+1)
		}
	}

	if limiter.allow() {
		t.Error("allow() permitted a request beyond the burst")
	}
}

// TestRateLimiterRefills verifies that tokens come back after the refill
// interval elapses.
func TestRateLimiterRefills(t *testing.T) {
	limiter := newRateLimiter(2, 40*time.Millisecond)

	limiter.allow()
	limiter.allow()
	if limiter.allow() {
		t.Fatal("allow() permitted a request with an empty bucket")
	}

	time.Sleep(60 * time.Millisecond)

	if !limiter.allow() {
		t.Error("allow() denied a request after the refill interval")
	}
}

// TestRateLimiterSanitizesParameters verifies that non-positive
// parameters fall back to workable defaults instead of a limiter that
// never allows anything.
func TestRateLimiterSanitizesParameters(t *testing.T) {
	limiter := newRateLimiter(0, 0)

	if !limiter.allow() {
		t.Error("allow() denied the first request on a sanitized limiter")
	}
}
