package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Delay computes the backoff delay for a 0-based attempt number:
// min(initial * multiplier^attempt, max) plus additive jitter of up to
// 25% of the capped value. The result is never below the capped value
// and never negative.
func Delay(attempt int, initial, max time.Duration, multiplier float64) time.Duration {
	if initial < 0 {
		initial = 0
	}
	if max < initial {
		max = initial
	}

	d := float64(initial) * math.Pow(multiplier, float64(attempt))
	if d > float64(max) || math.IsInf(d, 1) || math.IsNaN(d) {
		d = float64(max)
	}

	// Jitter spreads out synchronized retries.
	d += d * rand.Float64() * 0.25

	return time.Duration(d)
}
