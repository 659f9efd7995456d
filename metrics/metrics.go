// Package metrics exports pipeline counters and timings over OTLP.
// Disabled by configuration it is a no-op; callers guard record calls with
// IsEnabled.
package metrics

import (
	"context"
	"log"
	"runtime"
	"sync/atomic"
	"time"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"mta/metro-disruptions/config"
)

var (
	meterProvider *sdkmetric.MeterProvider

	// Meter is the global meter for creating instruments.
	Meter metric.Meter

	// lastPassTimestamp tracks the last successfully committed pass.
	lastPassTimestamp atomic.Int64
)

// InitMetrics initializes OpenTelemetry metrics with an OTLP gRPC exporter.
// Returns a shutdown function to call on application exit. Exporter setup
// failures are logged and leave metrics disabled rather than failing the
// application.
func InitMetrics(cfg config.MetricsConfig) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	ctx := context.Background()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		log.Printf("WARN: OTLP metric exporter unavailable, metrics disabled: %v", err)
		return func() {}, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("metro-disruptions"),
	))
	if err != nil {
		log.Printf("WARN: metric resource setup failed, metrics disabled: %v", err)
		return func() {}, nil
	}

	interval := time.Duration(cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)),
		),
		sdkmetric.WithResource(res),
	)
	otelapi.SetMeterProvider(meterProvider)
	Meter = meterProvider.Meter("metro-disruptions")

	if err := initializeInstruments(); err != nil {
		log.Printf("ERROR: metric instruments failed to initialize: %v", err)
		Meter = nil
		return func() {}, nil
	}
	if err := registerRuntimeMetrics(); err != nil {
		log.Printf("WARN: runtime metrics unavailable: %v", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Printf("ERROR: meter provider shutdown: %v", err)
		}
	}, nil
}

func registerRuntimeMetrics() error {
	_, err := Meter.Int64ObservableGauge(
		"runtime.go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutine}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(runtime.NumGoroutine()))
			return nil
		}),
	)
	if err != nil {
		return err
	}

	_, err = Meter.Int64ObservableGauge(
		"pipeline.last_pass.timestamp",
		metric.WithDescription("Snapshot timestamp of the last committed pass"),
		metric.WithUnit("s"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if ts := lastPassTimestamp.Load(); ts > 0 {
				o.Observe(ts)
			}
			return nil
		}),
	)
	return err
}

// RecordLastPassTimestamp records the snapshot minute of a committed pass.
func RecordLastPassTimestamp(ts int64) {
	lastPassTimestamp.Store(ts)
}

// IsEnabled returns true if metrics collection is enabled.
func IsEnabled() bool {
	return Meter != nil
}
