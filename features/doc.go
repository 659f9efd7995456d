// Package features turns one snapshot minute of realtime records into per
// station feature vectors.
//
// The Joiner selects at most one trip forecast and one vehicle observation
// per (stop, direction) under asymmetric staleness tolerances; the forecast
// tolerance adapts to observed feed latency through a bounded percentile
// estimator. The Computer then derives the feature columns from the joined
// record and the prior committed StationState, and stages the state update
// for the pass commit.
//
// Missing values are NaN, never zero: absent and zero are different facts
// and the scorer decides how to fill.
package features
