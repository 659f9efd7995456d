// Package state owns the mutable heart of the feature builder: one
// StationState per (stop, direction) with bounded rolling history, and the
// Store that enforces the per-pass update contract.
//
// The Store processes one snapshot minute at a time. A pass is opened with
// BeginPass, observations are staged with Apply (at most one per key), and
// Commit makes them visible. Passes must arrive in strict snapshot-timestamp
// order; violations are contract errors, never silent corruption. Feature
// computation reads prior committed state only, so a pass is deterministic
// regardless of how its keys are computed in parallel.
package state
