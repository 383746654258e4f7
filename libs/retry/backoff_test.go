package retry

import (
	"testing"
	"time"
)

func TestBackoff_Doubles(t *testing.T) {
	base := 5 * time.Second
	limit := 10 * time.Minute
	for i, want := range []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second} {
		if got := Backoff(base, i, limit); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestBackoff_Clamped(t *testing.T) {
	limit := 10 * time.Minute
	if got := Backoff(5*time.Second, 12, limit); got != limit {
		t.Fatalf("expected clamp to %s, got %s", limit, got)
	}
	// Attempts beyond the shift cap must not overflow or shrink.
	if got := Backoff(5*time.Second, 10_000, limit); got != limit {
		t.Fatalf("expected clamp for huge attempt, got %s", got)
	}
}

func TestBackoff_NegativeAttempt(t *testing.T) {
	if got := Backoff(time.Second, -3, time.Minute); got != time.Second {
		t.Fatalf("expected base for negative attempt, got %s", got)
	}
}

func TestBackoff_ZeroBase(t *testing.T) {
	if got := Backoff(0, 5, time.Minute); got != 0 {
		t.Fatalf("expected 0 for zero base, got %s", got)
	}
}
