package api

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterPerKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 3, time.Hour)
	for i := range 3 {
		if !rl.Allow("alice") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("alice") {
		t.Fatal("fourth request within the window should be throttled")
	}
	if !rl.Allow("bob") {
		t.Fatal("keys must not share a budget")
	}
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 1, 10*time.Millisecond)
	rl.Allow("alice")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rl.mu.Lock()
		n := len(rl.visitors)
		rl.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("idle visitor was not evicted")
}
