// Package topology holds the immutable network index consumed by the
// feature builder: ordered stop sequences per (route, direction), the
// connectivity degree of every stop, and the derived hub classification.
//
// The index is built once, either from a precomputed route map or from a
// bootstrap window of observed trip forecasts, and is read-only afterwards.
package topology
