// Package pipeline orchestrates one processing pass per snapshot minute:
// join, feature computation, state commit, anomaly scoring.
//
// A pass is a pure function of (prior store state, topology, the minute's
// records): feature computation reads only prior committed state, updates
// are staged and committed together after every key is computed, and the
// same ordered input replayed against a cold store yields identical rows.
// Because of the read-then-commit split, keys may be computed in parallel
// within a pass without changing the result.
package pipeline
