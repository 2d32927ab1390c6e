package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(1, 2)

	// Burst of 2 is allowed immediately, third is not.
	if !l.Allow("openai") {
		t.Error("first call should be allowed")
	}
	if !l.Allow("openai") {
		t.Error("second call should be allowed (burst)")
	}
	if l.Allow("openai") {
		t.Error("third call should be rate limited")
	}
}

func TestLimiter_KeysIndependent(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("openai") {
		t.Error("openai should be allowed")
	}
	if l.Allow("openai") {
		t.Error("openai should now be limited")
	}
	if !l.Allow("citation-check") {
		t.Error("different key should have its own budget")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetRate("fast", 1000, 100)

	for i := 0; i < 50; i++ {
		if !l.Allow("fast") {
			t.Fatalf("call %d should be allowed under raised rate", i)
		}
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow("slow") // Exhaust the burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "slow"); err == nil {
		t.Error("Wait should fail when context expires before a slot opens")
	}
}

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if !l.Allow("any") {
		t.Error("defaulted limiter should allow an initial call")
	}
}
