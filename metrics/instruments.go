package metrics

import (
	"go.opentelemetry.io/otel/metric"
)

// Feed metrics
var (
	// FeedFetchDuration measures the duration of realtime feed fetches
	FeedFetchDuration metric.Float64Histogram

	// FeedFetchErrors counts failed feed fetches
	FeedFetchErrors metric.Int64Counter

	// FeedRecordsDecoded counts decoded forecast and position records
	FeedRecordsDecoded metric.Int64Counter
)

// Pipeline metrics
var (
	// PassesTotal counts committed snapshot-minute passes
	PassesTotal metric.Int64Counter

	// PassesRejected counts minutes rejected for ordering violations
	PassesRejected metric.Int64Counter

	// PassDuration measures the duration of one full pass
	PassDuration metric.Float64Histogram

	// RowsEmitted counts emitted feature rows
	RowsEmitted metric.Int64Counter

	// RowsDiscarded counts rows dropped by the scorer's defensive filters
	RowsDiscarded metric.Int64Counter
)

// Detection metrics
var (
	// AlertsTotal counts raised anomaly alerts
	AlertsTotal metric.Int64Counter

	// WarmupRows counts rows scored while alerting was suppressed
	WarmupRows metric.Int64Counter
)

// Sink metrics
var (
	// SinkWriteDuration measures the duration of Postgres batch writes
	SinkWriteDuration metric.Float64Histogram

	// SinkWriteErrors counts failed Postgres batch writes
	SinkWriteErrors metric.Int64Counter
)

func initializeInstruments() error {
	var err error

	FeedFetchDuration, err = Meter.Float64Histogram(
		"feed.fetch.duration",
		metric.WithDescription("Duration of realtime feed fetches"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	FeedFetchErrors, err = Meter.Int64Counter(
		"feed.fetch.errors",
		metric.WithDescription("Failed realtime feed fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	FeedRecordsDecoded, err = Meter.Int64Counter(
		"feed.records.decoded",
		metric.WithDescription("Decoded forecast and position records"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	PassesTotal, err = Meter.Int64Counter(
		"pipeline.passes.total",
		metric.WithDescription("Committed snapshot-minute passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	PassesRejected, err = Meter.Int64Counter(
		"pipeline.passes.rejected",
		metric.WithDescription("Minutes rejected for ordering violations"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return err
	}

	PassDuration, err = Meter.Float64Histogram(
		"pipeline.pass.duration",
		metric.WithDescription("Duration of one snapshot-minute pass"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return err
	}

	RowsEmitted, err = Meter.Int64Counter(
		"pipeline.rows.emitted",
		metric.WithDescription("Emitted feature rows"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	RowsDiscarded, err = Meter.Int64Counter(
		"pipeline.rows.discarded",
		metric.WithDescription("Rows dropped by defensive filtering"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	AlertsTotal, err = Meter.Int64Counter(
		"detect.alerts.total",
		metric.WithDescription("Raised anomaly alerts"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	WarmupRows, err = Meter.Int64Counter(
		"detect.warmup.rows",
		metric.WithDescription("Rows scored while alerting was suppressed"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return err
	}

	SinkWriteDuration, err = Meter.Float64Histogram(
		"sink.write.duration",
		metric.WithDescription("Duration of Postgres batch writes"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return err
	}

	SinkWriteErrors, err = Meter.Int64Counter(
		"sink.write.errors",
		metric.WithDescription("Failed Postgres batch writes"),
		metric.WithUnit("{write}"),
	)
	return err
}
