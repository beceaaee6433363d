package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds environment-driven settings. Per-run parameters (storm name,
// year, output path, filter toggles) come from command-line flags and
// override these where both exist.
type Config struct {
	MIRSDir    string
	IBTracsCSV string
	IBTracsNC  string

	// TimeWindow is the half-width of the granule acceptance window around
	// each track point.
	TimeWindow time.Duration

	// MetricsAddr enables the health/metrics HTTP server when non-empty.
	MetricsAddr string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	timeWindow, err := parseDuration("TIME_WINDOW", "12h")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MIRSDir:         EnvOrDefault("MIRS_DIR", "."),
		IBTracsCSV:      EnvOrDefault("IBTRACS_CSV", "ibtracs.ALL.list.v04r00.csv"),
		IBTracsNC:       EnvOrDefault("IBTRACS_NC", "IBTrACS.ALL.v04r00.nc"),
		TimeWindow:      timeWindow,
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}
	return cfg, nil
}

// EnvOrDefault returns the environment value for key, or def when unset.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
