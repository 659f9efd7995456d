package detect

import (
	"mta/metro-disruptions/state"
	"mta/metro-disruptions/utils"
)

// ScoreWindow is a fixed-capacity FIFO of past anomaly scores used to
// derive the adaptive threshold. Length never exceeds the capacity;
// insertion is O(1) and eviction is oldest-first.
type ScoreWindow struct {
	ring *state.Ring
}

// NewScoreWindow creates a window with the given capacity.
func NewScoreWindow(capacity int) *ScoreWindow {
	return &ScoreWindow{ring: state.NewRing(capacity)}
}

// Push inserts a score, evicting the oldest when full.
func (w *ScoreWindow) Push(score float64) { w.ring.Push(score) }

// Len returns the number of stored scores.
func (w *ScoreWindow) Len() int { return w.ring.Len() }

// Cap returns the window capacity.
func (w *ScoreWindow) Cap() int { return w.ring.Cap() }

// Values returns the stored scores oldest-first.
func (w *ScoreWindow) Values() []float64 { return w.ring.Values() }

// Quantile returns the q-th (0..1) quantile of the current contents with
// linear interpolation, or NaN when empty.
func (w *ScoreWindow) Quantile(q float64) float64 {
	return utils.Quantile(w.ring.Values(), q)
}
