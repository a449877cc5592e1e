// ABOUTME: Tests for exponential backoff calculation
// ABOUTME: Verifies growth, the cap and jitter bounds
package util

import (
	"testing"
	"time"
)

func TestCalculateBackoff_ZeroAttempt(t *testing.T) {
	if got := CalculateBackoff(time.Second, 0); got != 0 {
		t.Errorf("CalculateBackoff(1s, 0) = %v, want 0", got)
	}
	if got := CalculateBackoff(time.Second, -1); got != 0 {
		t.Errorf("CalculateBackoff(1s, -1) = %v, want 0", got)
	}
}

func TestCalculateBackoff_JitterBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 4; attempt++ {
		expected := base * time.Duration(1<<uint(attempt))
		for i := 0; i < 50; i++ {
			got := CalculateBackoff(base, attempt)
			low := expected - expected/4
			high := expected + expected/4
			if got < low || got > high {
				t.Fatalf("attempt %d: backoff %v outside [%v, %v]", attempt, got, low, high)
			}
		}
	}
}

func TestCalculateBackoff_Cap(t *testing.T) {
	// Large attempts must stay near the 30 second ceiling
	for _, attempt := range []int{10, 30, 100} {
		got := CalculateBackoff(time.Second, attempt)
		if got > 30*time.Second+30*time.Second/4 {
			t.Errorf("attempt %d: backoff %v exceeds capped maximum", attempt, got)
		}
	}
}
