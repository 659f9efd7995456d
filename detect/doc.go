// Package detect scores feature rows online for anomalies.
//
// The Model interface separates the two operations of an incremental
// detector, scoring and learning, so the ensemble can be swapped without
// touching the windowing and threshold logic. The shipped implementation
// is a half-space-tree ensemble with fixed structure decided at build time
// and node masses updated per observation.
//
// The Scorer wraps a Model with a bounded FIFO window of past scores, an
// adaptive quantile threshold over that window, and a warm-up gate that
// suppresses alerts (observably) until enough days of observations have
// been scored.
package detect
