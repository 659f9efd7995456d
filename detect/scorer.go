package detect

import (
	"math"

	"mta/metro-disruptions/config"
	"mta/metro-disruptions/features"
)

// Result is the anomaly outcome for one scored feature row.
type Result struct {
	StopID            string
	DirectionID       int
	SnapshotTimestamp int64
	Score             float64
	Threshold         float64
	Alert             bool
	// Warmup marks a row scored during the warm-up period: the model and
	// window were updated but alerting was suppressed. Distinct from
	// "scored, below threshold".
	Warmup bool
}

// Scorer runs the online anomaly detection for feature rows: defensive
// filtering, scoring, window maintenance, adaptive thresholding and the
// warm-up gate.
type Scorer struct {
	cfg      config.DetectConfig
	model    Model
	window   *ScoreWindow
	excluded map[string]struct{}
	firstTS  int64
	scored   int
}

// NewScorer builds a scorer with the shipped half-space-tree model.
func NewScorer(cfg config.DetectConfig) *Scorer {
	return NewScorerWithModel(cfg, NewHalfSpaceTrees(
		cfg.NTrees, cfg.Height, cfg.SubsampleSize, cfg.WindowSize,
		len(features.Columns()), cfg.Seed,
	))
}

// NewScorerWithModel builds a scorer around a caller-provided model,
// keeping the windowing and threshold logic unchanged.
func NewScorerWithModel(cfg config.DetectConfig, model Model) *Scorer {
	excluded := make(map[string]struct{}, len(cfg.ExcludedStops))
	for _, s := range cfg.ExcludedStops {
		excluded[s] = struct{}{}
	}
	return &Scorer{
		cfg:      cfg,
		model:    model,
		window:   NewScoreWindow(cfg.WindowSize),
		excluded: excluded,
	}
}

// ScoreRow scores one feature row and updates the model and window.
// Returns ok=false for rows that are filtered out (excluded stop or
// all-zero features); filtered rows touch neither the model nor the
// window.
func (s *Scorer) ScoreRow(v *features.Vector) (Result, bool) {
	if _, bad := s.excluded[v.StopID]; bad {
		return Result{}, false
	}
	if v.IsZero() {
		return Result{}, false
	}

	x := fillNaN(v.Values())
	score := s.model.Score(x)
	s.window.Push(score)
	if s.firstTS == 0 {
		s.firstTS = v.SnapshotTimestamp
	}
	s.scored++

	warmup := v.SnapshotTimestamp-s.firstTS < int64(s.cfg.WarmupDays)*86400
	threshold := s.window.Quantile(s.cfg.ThresholdQuantile)
	alert := !warmup && !math.IsNaN(threshold) && score > threshold

	s.model.Update(x)

	return Result{
		StopID:            v.StopID,
		DirectionID:       v.DirectionID,
		SnapshotTimestamp: v.SnapshotTimestamp,
		Score:             score,
		Threshold:         threshold,
		Alert:             alert,
		Warmup:            warmup,
	}, true
}

// Warmup reports whether the scorer is still inside the warm-up period at
// the given snapshot timestamp.
func (s *Scorer) Warmup(ts int64) bool {
	if s.firstTS == 0 {
		return true
	}
	return ts-s.firstTS < int64(s.cfg.WarmupDays)*86400
}

// Scored returns the number of rows scored so far.
func (s *Scorer) Scored() int { return s.scored }

// WindowLen returns the current score-window occupancy.
func (s *Scorer) WindowLen() int { return s.window.Len() }

func fillNaN(x []float64) []float64 {
	for i, v := range x {
		if math.IsNaN(v) {
			x[i] = 0
		}
	}
	return x
}
