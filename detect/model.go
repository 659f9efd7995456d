package detect

// Model is an incrementally-updated anomaly model. Score and Update are
// separate operations: the scorer always scores a row before learning
// from it, so a repeated anomaly stays anomalous on arrival.
type Model interface {
	// Score returns an anomaly score in [0, 1]; higher is more anomalous.
	Score(x []float64) float64
	// Update learns one observation.
	Update(x []float64)
}
