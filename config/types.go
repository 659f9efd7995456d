package config

// FeedConfig contains GTFS-Realtime feed endpoints and polling cadence.
type FeedConfig struct {
	TripUpdatesURL      string `yaml:"tripUpdatesURL" validate:"omitempty"`
	VehiclePositionsURL string `yaml:"vehiclePositionsURL" validate:"omitempty"`
	PollIntervalMS      int    `yaml:"pollIntervalMS" validate:"gte=0"`
	TimeoutMS           int    `yaml:"timeoutMS" validate:"gte=0"`
}

// JoinConfig contains snapshot-join tolerances.
type JoinConfig struct {
	// ForecastStalenessSecs is the base bound on how stale a trip forecast
	// may be relative to the snapshot minute. The effective bound adapts to
	// observed feed latency between this value and three times it.
	ForecastStalenessSecs int64 `yaml:"forecastStalenessSecs" validate:"gte=0"`
	// VehicleStalenessSecs bounds how old a vehicle position may be and
	// still count as a present train.
	VehicleStalenessSecs int64 `yaml:"vehicleStalenessSecs" validate:"gte=0"`
	// LatencyWindowSize is the capacity of the recent-latency buffer that
	// feeds the adaptive tolerance estimator.
	LatencyWindowSize int `yaml:"latencyWindowSize" validate:"gte=0"`
	// LatencyRecomputeEvery is how many observations pass between
	// recomputations of the latency percentile.
	LatencyRecomputeEvery int `yaml:"latencyRecomputeEvery" validate:"gte=0"`
}

// DetectConfig contains the online anomaly model hyper-parameters.
type DetectConfig struct {
	NTrees            int      `yaml:"nTrees" validate:"gte=0"`
	Height            int      `yaml:"height" validate:"gte=0"`
	SubsampleSize     int      `yaml:"subsampleSize" validate:"gte=0"`
	WindowSize        int      `yaml:"windowSize" validate:"gte=0"`
	ThresholdQuantile float64  `yaml:"thresholdQuantile" validate:"gte=0,lte=1"`
	WarmupDays        int      `yaml:"warmupDays" validate:"gte=0"`
	Seed              int64    `yaml:"seed"`
	// ExcludedStops lists stop IDs that must never be scored, e.g. stops
	// closed for construction whose feeds emit garbage.
	ExcludedStops []string `yaml:"excludedStops"`
}

// PipelineConfig contains per-pass processing options.
type PipelineConfig struct {
	// Workers sets intra-pass parallelism across station keys.
	// 0 or 1 means sequential.
	Workers int `yaml:"workers" validate:"gte=0"`
}

// StoreConfig contains the optional Postgres sink configuration.
// DatabaseURL is taken from the DATABASE_URL environment variable when set.
type StoreConfig struct {
	DatabaseURL string `yaml:"databaseURL" validate:"omitempty"`
}

// ServerConfig contains the operational HTTP server configuration.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0"`
}

// MetricsConfig contains the OTLP metrics exporter configuration.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint" validate:"omitempty"`
	IntervalSecs int    `yaml:"intervalSecs" validate:"gte=0"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	// Timezone is the agency-local timezone used for service-day boundaries
	// and clock features.
	Timezone string         `yaml:"timezone"`
	Feed     FeedConfig     `yaml:"feed"`
	Join     JoinConfig     `yaml:"join"`
	Detect   DetectConfig   `yaml:"detect"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}
