package features

import (
	"mta/metro-disruptions/state"
	"mta/metro-disruptions/utils"
)

// LatencyWindow estimates the 95th percentile of observed forecast latency
// (|forecast snapshot time − pass snapshot time|) over a bounded recent
// history, so the join tolerance follows feed latency drift instead of
// being a fixed constant. The percentile is recomputed every
// recomputeEvery observations, not per insert.
type LatencyWindow struct {
	ring           *state.Ring
	recomputeEvery int
	sinceRecompute int
	p95            float64
}

// NewLatencyWindow creates an estimator over a bounded history.
func NewLatencyWindow(capacity, recomputeEvery int) *LatencyWindow {
	if capacity <= 0 {
		capacity = 512
	}
	if recomputeEvery <= 0 {
		recomputeEvery = 64
	}
	return &LatencyWindow{
		ring:           state.NewRing(capacity),
		recomputeEvery: recomputeEvery,
	}
}

// Observe records one latency sample in seconds.
func (w *LatencyWindow) Observe(latencySecs int64) {
	if latencySecs < 0 {
		latencySecs = -latencySecs
	}
	w.ring.Push(float64(latencySecs))
	w.sinceRecompute++
	if w.sinceRecompute >= w.recomputeEvery {
		w.recompute()
	}
}

func (w *LatencyWindow) recompute() {
	w.p95 = utils.Percentile(w.ring.Values(), 95)
	w.sinceRecompute = 0
}

// P95 returns the current estimate, 0 until enough samples arrived.
func (w *LatencyWindow) P95() float64 { return w.p95 }

// Tolerance returns the effective staleness bound: the p95 estimate
// clamped into [base, 3*base]. A cold estimator yields the base bound.
func (w *LatencyWindow) Tolerance(base int64) int64 {
	est := int64(w.p95)
	if est < base {
		return base
	}
	if est > 3*base {
		return 3 * base
	}
	return est
}
