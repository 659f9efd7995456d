package features

import "testing"

func TestLatencyToleranceCold(t *testing.T) {
	w := NewLatencyWindow(16, 4)
	if got := w.Tolerance(120); got != 120 {
		t.Errorf("cold tolerance = %d, want base 120", got)
	}
}

func TestLatencyToleranceTracksP95(t *testing.T) {
	w := NewLatencyWindow(16, 4)
	for i := 0; i < 8; i++ {
		w.Observe(200)
	}
	if got := w.Tolerance(120); got != 200 {
		t.Errorf("tolerance = %d, want 200", got)
	}
}

func TestLatencyToleranceClamped(t *testing.T) {
	w := NewLatencyWindow(16, 4)

	// A laggy feed pushes the estimate far above the base bound.
	for i := 0; i < 8; i++ {
		w.Observe(5000)
	}
	if got := w.Tolerance(120); got != 360 {
		t.Errorf("high tolerance = %d, want clamp at 3*base", got)
	}

	// Estimates below base never shrink the bound.
	w2 := NewLatencyWindow(16, 4)
	for i := 0; i < 8; i++ {
		w2.Observe(10)
	}
	if got := w2.Tolerance(120); got != 120 {
		t.Errorf("low tolerance = %d, want base 120", got)
	}
}

func TestLatencyRecomputeCadence(t *testing.T) {
	w := NewLatencyWindow(16, 4)
	w.Observe(100)
	w.Observe(100)
	w.Observe(100)
	// Not yet recomputed.
	if w.P95() != 0 {
		t.Errorf("P95 before cadence = %v", w.P95())
	}
	w.Observe(100)
	if w.P95() != 100 {
		t.Errorf("P95 after cadence = %v", w.P95())
	}
}
