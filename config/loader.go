package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from
// config.yml, applying .env / environment overrides and defaults.
func LoadAppConfig() error {
	_ = godotenv.Load(".env")

	paths := []string{"config.yml", "./config/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Store.DatabaseURL = url
	}
	if tz := os.Getenv("METRO_TZ"); tz != "" {
		cfg.Timezone = tz
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return err
	}
	Config = ApplyDefaults(cfg)
	return nil
}

// ApplyDefaults fills zero-valued fields with the reference configuration.
func ApplyDefaults(cfg AppConfig) AppConfig {
	if cfg.Timezone == "" {
		cfg.Timezone = "Australia/Sydney"
	}
	if cfg.Feed.PollIntervalMS == 0 {
		cfg.Feed.PollIntervalMS = 60000
	}
	if cfg.Feed.TimeoutMS == 0 {
		cfg.Feed.TimeoutMS = 30000
	}
	if cfg.Join.ForecastStalenessSecs == 0 {
		cfg.Join.ForecastStalenessSecs = 120
	}
	if cfg.Join.VehicleStalenessSecs == 0 {
		cfg.Join.VehicleStalenessSecs = 30
	}
	if cfg.Join.LatencyWindowSize == 0 {
		cfg.Join.LatencyWindowSize = 512
	}
	if cfg.Join.LatencyRecomputeEvery == 0 {
		cfg.Join.LatencyRecomputeEvery = 64
	}
	if cfg.Detect.NTrees == 0 {
		cfg.Detect.NTrees = 100
	}
	if cfg.Detect.Height == 0 {
		cfg.Detect.Height = 10
	}
	if cfg.Detect.SubsampleSize == 0 {
		cfg.Detect.SubsampleSize = 256
	}
	if cfg.Detect.WindowSize == 0 {
		cfg.Detect.WindowSize = 10000
	}
	if cfg.Detect.ThresholdQuantile == 0 {
		cfg.Detect.ThresholdQuantile = 0.97
	}
	if cfg.Detect.WarmupDays == 0 {
		cfg.Detect.WarmupDays = 4
	}
	if cfg.Detect.ExcludedStops == nil {
		cfg.Detect.ExcludedStops = []string{"204472", "2155270"}
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16181
	}
	if cfg.Metrics.IntervalSecs == 0 {
		cfg.Metrics.IntervalSecs = 60
	}
	if cfg.Metrics.Endpoint == "" {
		cfg.Metrics.Endpoint = "localhost:4317"
	}
	return cfg
}
