// Package utils provides internal utility functions for the disruption
// detection pipeline. This package is not intended to be imported by
// external code.
//
// It contains:
//   - Service-day and local-time helpers
//   - Small numeric helpers shared by the feature and detection layers
//     (mean, sample standard deviation, linear-interpolation percentile)
package utils
