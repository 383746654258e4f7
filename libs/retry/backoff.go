// Package retry provides the backoff schedule shared by the outbox publisher
// and the inbox processor sweep.
package retry

import "time"

const maxShift = 20

// Backoff returns base * 2^attempt clamped to limit. Negative attempts count
// as the first one; a zero limit means no clamp beyond overflow protection.
func Backoff(base time.Duration, attempt int, limit time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxShift {
		attempt = maxShift
	}
	d := base << uint(attempt)
	if d < base {
		d = limit
	}
	if limit > 0 && d > limit {
		d = limit
	}
	return d
}
