package retry

import (
	"testing"
	"time"
)

func TestDelay(t *testing.T) {
	t.Run("bounds with jitter", func(t *testing.T) {
		initial := 1 * time.Second
		max := 30 * time.Second

		for attempt := 0; attempt <= 20; attempt++ {
			capped := initial * time.Duration(1<<attempt)
			if capped > max || capped <= 0 {
				capped = max
			}

			for i := 0; i < 50; i++ {
				d := Delay(attempt, initial, max, 2)
				if d < capped {
					t.Fatalf("attempt %d: delay %v below cap %v", attempt, d, capped)
				}
				if upper := capped + capped/4; d > upper {
					t.Fatalf("attempt %d: delay %v above cap+25%% %v", attempt, d, upper)
				}
			}
		}
	})

	t.Run("caps at max", func(t *testing.T) {
		d := Delay(10, time.Second, 5*time.Second, 2)
		if d > 5*time.Second+5*time.Second/4 {
			t.Errorf("delay %v exceeds jittered max", d)
		}
		if d < 5*time.Second {
			t.Errorf("delay %v below max cap", d)
		}
	})

	t.Run("huge attempt does not overflow", func(t *testing.T) {
		d := Delay(1000, time.Second, 30*time.Second, 2)
		if d < 30*time.Second || d > 30*time.Second+30*time.Second/4 {
			t.Errorf("delay %v outside [max, max*1.25]", d)
		}
	})

	t.Run("never negative", func(t *testing.T) {
		if d := Delay(0, 0, 0, 2); d < 0 {
			t.Errorf("delay %v is negative", d)
		}
	})
}
