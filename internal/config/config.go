// Package config assembles the tool's configuration from flags and
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/oxhq/covgate/internal/model"
)

// Config holds the application's configuration.
type Config struct {
	DBPath        string
	RetentionRuns int
	Debug         bool
}

// Load reads configuration from environment variables, honoring a
// project .env file when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:        os.Getenv("COVGATE_DB"),
		RetentionRuns: 20,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(".covgate", "history.db")
	}
	if retentionStr := os.Getenv("COVGATE_RETENTION_RUNS"); retentionStr != "" {
		if retention, err := strconv.Atoi(retentionStr); err == nil && retention >= 0 {
			cfg.RetentionRuns = retention
		}
	}
	if debugStr := os.Getenv("COVGATE_DEBUG"); debugStr != "" {
		if debug, err := strconv.ParseBool(debugStr); err == nil {
			cfg.Debug = debug
		}
	}

	return cfg
}

// ThresholdsFromFlags extracts and validates the minimum coverage
// flags. Validation happens here, before any report is fetched or
// parsed.
func ThresholdsFromFlags(fs *pflag.FlagSet) (model.Thresholds, error) {
	th := model.DefaultThresholds()
	if fs.Changed("min-line-coverage") {
		th.MinLine, _ = fs.GetFloat64("min-line-coverage")
	}
	if fs.Changed("min-branch-coverage") {
		th.MinBranch, _ = fs.GetFloat64("min-branch-coverage")
	}
	if err := th.Validate(); err != nil {
		return model.Thresholds{}, err
	}
	return th, nil
}
