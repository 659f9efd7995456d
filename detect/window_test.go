package detect

import (
	"math"
	"testing"
)

func TestScoreWindowBounded(t *testing.T) {
	w := NewScoreWindow(100)
	for i := 0; i < 250; i++ {
		w.Push(float64(i))
	}
	if w.Len() != 100 {
		t.Errorf("Len = %d, want capacity 100", w.Len())
	}
	// Oldest scores were evicted.
	if got := w.Values()[0]; got != 150 {
		t.Errorf("oldest retained = %v, want 150", got)
	}
}

func TestScoreWindowQuantile(t *testing.T) {
	w := NewScoreWindow(10)
	if !math.IsNaN(w.Quantile(0.97)) {
		t.Error("empty window quantile should be NaN")
	}
	for i := 1; i <= 5; i++ {
		w.Push(float64(i) / 10)
	}
	// Median of {0.1 .. 0.5}.
	if got := w.Quantile(0.5); math.Abs(got-0.3) > 1e-12 {
		t.Errorf("Quantile(0.5) = %v, want 0.3", got)
	}
}
