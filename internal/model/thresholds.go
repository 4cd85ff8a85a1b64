package model

import "fmt"

// Thresholds holds the minimum acceptable coverage per metric, each a
// ratio in [0.0, 1.0]. Both default to 1.0: any uncovered line or
// branch fails the check.
type Thresholds struct {
	MinLine   float64
	MinBranch float64
}

// DefaultThresholds returns the full-coverage defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{MinLine: 1.0, MinBranch: 1.0}
}

// ConfigError reports a threshold outside [0.0, 1.0]. It is raised
// before any report is parsed.
type ConfigError struct {
	Field string
	Value float64
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: must be between 0.0 and 1.0", e.Field, e.Value)
}

// Validate checks both thresholds, returning a *ConfigError for the
// first out-of-range value.
func (t Thresholds) Validate() error {
	if t.MinLine < 0 || t.MinLine > 1 {
		return &ConfigError{Field: "min-line-coverage", Value: t.MinLine}
	}
	if t.MinBranch < 0 || t.MinBranch > 1 {
		return &ConfigError{Field: "min-branch-coverage", Value: t.MinBranch}
	}
	return nil
}
