package middleware

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   3,
		window:  time.Minute,
	}

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1:1234") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("10.0.0.1:1234") {
		t.Fatal("request over the limit should be rejected")
	}

	// Other clients are tracked independently.
	if !rl.allow("10.0.0.2:1234") {
		t.Fatal("a different client should not share the limit")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   1,
		window:  time.Minute,
	}

	if !rl.allow("10.0.0.1:1234") {
		t.Fatal("first request should be allowed")
	}
	if rl.allow("10.0.0.1:1234") {
		t.Fatal("second request inside the window should be rejected")
	}

	// Age the bucket past the window; the next request starts a fresh count.
	rl.buckets["10.0.0.1:1234"].lastSeen = time.Now().Add(-2 * time.Minute)
	if !rl.allow("10.0.0.1:1234") {
		t.Fatal("request after the window expired should be allowed")
	}
}
