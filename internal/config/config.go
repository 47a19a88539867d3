package config

import (
	"os"
	"strconv"
	"strings"

	"driftwatch/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data     DataConfig
	Engine   EngineConfig
	Server   ServerConfig
	Database DatabaseConfig
}

// DataConfig describes the input snapshot handed to the engine
type DataConfig struct {
	InputPath  string   // CSV or XLSX; empty = synthetic demo cohort
	IDColumn   string   // person identifier column
	WaveColumn string   // wave index column
	Features   []string // tracked feature columns; empty = infer numeric
	GroupCol   string   // optional demographic column for fairness report
	WideFormat bool     // survey exports with per-wave column blocks
	SampleRows int      // cap on rows read from wide exports
}

// EngineConfig carries every tunable the analytical core recognizes
type EngineConfig struct {
	TargetColumn    string
	TargetThreshold float64

	MinWaves      int // minimum waves for a baseline
	BaselineWaves int // fixed baseline window; 0 = half of history

	MovingAvgWindow  int
	SlopeWindow      int
	DeclineThreshold float64 // general decline flag (display path)

	TestFraction float64
	ModelFamily  string // "linear" or "ensemble"

	BandLowMax      float64
	BandModerateMax float64

	Seed               int64
	MinTrainingPersons int
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds optional result persistence settings.
// An empty URL disables persistence.
type DatabaseConfig struct {
	URL string
}

// NoLeakageDeclineThreshold is the decline cutoff used inside the
// leakage-safe training builder. It deliberately differs from the general
// display threshold and must not be unified with it.
const NoLeakageDeclineThreshold = -0.05

// DefaultDeclineThreshold is the general decline cutoff on display slopes.
const DefaultDeclineThreshold = -0.1

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Data: DataConfig{
			InputPath:  os.Getenv("DRIFT_INPUT_PATH"),
			IDColumn:   getEnvOrDefault("DRIFT_ID_COLUMN", "person_id"),
			WaveColumn: getEnvOrDefault("DRIFT_WAVE_COLUMN", "wave"),
			Features:   splitList(os.Getenv("DRIFT_FEATURES")),
			GroupCol:   os.Getenv("DRIFT_GROUP_COLUMN"),
			WideFormat: getEnvBoolOrDefault("DRIFT_WIDE_FORMAT", false),
			SampleRows: getEnvIntOrDefault("DRIFT_SAMPLE_ROWS", 5000),
		},
		Engine: EngineConfig{
			TargetColumn:       os.Getenv("DRIFT_TARGET_COLUMN"),
			TargetThreshold:    getEnvFloatOrDefault("DRIFT_TARGET_THRESHOLD", 2.5),
			MinWaves:           getEnvIntOrDefault("DRIFT_MIN_WAVES", 2),
			BaselineWaves:      getEnvIntOrDefault("DRIFT_BASELINE_WAVES", 0),
			MovingAvgWindow:    getEnvIntOrDefault("DRIFT_MA_WINDOW", 3),
			SlopeWindow:        getEnvIntOrDefault("DRIFT_SLOPE_WINDOW", 4),
			DeclineThreshold:   getEnvFloatOrDefault("DRIFT_DECLINE_THRESHOLD", DefaultDeclineThreshold),
			TestFraction:       getEnvFloatOrDefault("DRIFT_TEST_FRACTION", 0.2),
			ModelFamily:        getEnvOrDefault("DRIFT_MODEL_FAMILY", "linear"),
			BandLowMax:         getEnvFloatOrDefault("DRIFT_BAND_LOW_MAX", 30),
			BandModerateMax:    getEnvFloatOrDefault("DRIFT_BAND_MODERATE_MAX", 60),
			Seed:               int64(getEnvIntOrDefault("DRIFT_SEED", 42)),
			MinTrainingPersons: getEnvIntOrDefault("DRIFT_MIN_TRAINING_PERSONS", 10),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Engine.ModelFamily != "linear" && cfg.Engine.ModelFamily != "ensemble" {
		return errors.ConfigInvalid("DRIFT_MODEL_FAMILY must be 'linear' or 'ensemble'")
	}
	if cfg.Engine.TestFraction <= 0 || cfg.Engine.TestFraction >= 1 {
		return errors.ConfigInvalid("DRIFT_TEST_FRACTION must be in (0, 1)")
	}
	if cfg.Engine.MinWaves < 1 {
		return errors.ConfigInvalid("DRIFT_MIN_WAVES must be >= 1")
	}
	if cfg.Engine.MovingAvgWindow < 1 {
		return errors.ConfigInvalid("DRIFT_MA_WINDOW must be >= 1")
	}
	if cfg.Engine.SlopeWindow < 2 {
		return errors.ConfigInvalid("DRIFT_SLOPE_WINDOW must be >= 2")
	}
	if cfg.Engine.BandLowMax >= cfg.Engine.BandModerateMax {
		return errors.ConfigInvalid("band cut points must satisfy low < moderate")
	}
	return nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
