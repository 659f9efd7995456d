package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
timezone: Europe/Oslo
feed:
  tripUpdatesURL: https://example.test/tu
  vehiclePositionsURL: https://example.test/vp
join:
  forecastStalenessSecs: 90
detect:
  nTrees: 50
  seed: 7
server:
  port: 9000
`)
	chdir(t, dir)

	if err := LoadAppConfig(); err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if Config.Timezone != "Europe/Oslo" {
		t.Errorf("Timezone = %s", Config.Timezone)
	}
	if Config.Feed.TripUpdatesURL != "https://example.test/tu" {
		t.Errorf("TripUpdatesURL = %s", Config.Feed.TripUpdatesURL)
	}
	if Config.Join.ForecastStalenessSecs != 90 {
		t.Errorf("ForecastStalenessSecs = %d", Config.Join.ForecastStalenessSecs)
	}
	if Config.Detect.NTrees != 50 || Config.Detect.Seed != 7 {
		t.Errorf("Detect = %+v", Config.Detect)
	}
	if Config.Server.Port != 9000 {
		t.Errorf("Port = %d", Config.Server.Port)
	}
	// Unset fields fall back to the reference values.
	if Config.Detect.WindowSize != 10000 || Config.Detect.WarmupDays != 4 {
		t.Errorf("defaults not applied: %+v", Config.Detect)
	}
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if err := LoadAppConfig(); err == nil {
		t.Error("missing config.yml should error")
	}
}

func TestLoadAppConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "timezone: Australia/Sydney\n")
	chdir(t, dir)
	t.Setenv("DATABASE_URL", "postgres://test/metro")
	t.Setenv("METRO_TZ", "Australia/Melbourne")

	if err := LoadAppConfig(); err != nil {
		t.Fatalf("LoadAppConfig: %v", err)
	}
	if Config.Store.DatabaseURL != "postgres://test/metro" {
		t.Errorf("DatabaseURL = %s", Config.Store.DatabaseURL)
	}
	if Config.Timezone != "Australia/Melbourne" {
		t.Errorf("Timezone = %s", Config.Timezone)
	}
}

func TestLoadAppConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
detect:
  thresholdQuantile: 1.5
`)
	chdir(t, dir)
	if err := LoadAppConfig(); err == nil {
		t.Error("out-of-range quantile should fail validation")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := ApplyDefaults(AppConfig{})
	if cfg.Timezone != "Australia/Sydney" {
		t.Errorf("Timezone = %s", cfg.Timezone)
	}
	if cfg.Join.ForecastStalenessSecs != 120 || cfg.Join.VehicleStalenessSecs != 30 {
		t.Errorf("Join defaults = %+v", cfg.Join)
	}
	if cfg.Detect.NTrees != 100 || cfg.Detect.Height != 10 || cfg.Detect.ThresholdQuantile != 0.97 {
		t.Errorf("Detect defaults = %+v", cfg.Detect)
	}
	if len(cfg.Detect.ExcludedStops) != 2 {
		t.Errorf("ExcludedStops = %v", cfg.Detect.ExcludedStops)
	}
	if cfg.Server.Port != 16181 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}

	// Explicit values survive.
	cfg = ApplyDefaults(AppConfig{Detect: DetectConfig{NTrees: 25, ExcludedStops: []string{}}})
	if cfg.Detect.NTrees != 25 {
		t.Errorf("explicit NTrees overridden: %d", cfg.Detect.NTrees)
	}
	if len(cfg.Detect.ExcludedStops) != 0 {
		t.Errorf("empty exclusion list overridden: %v", cfg.Detect.ExcludedStops)
	}
}
