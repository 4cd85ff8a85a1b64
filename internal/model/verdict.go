package model

// MetricFailure describes one metric that fell short of its threshold.
// Shortfall is expressed in percentage points; Missed carries the raw
// count of uncovered units for context. JSON tags allow verdicts to be
// persisted alongside recorded runs.
type MetricFailure struct {
	Metric    string  `json:"metric"`
	Actual    float64 `json:"actual"`
	Required  float64 `json:"required"`
	Shortfall float64 `json:"shortfall"`
	Missed    int64   `json:"missed"`
}

// Verdict is the outcome of checking a report against thresholds.
// Failures lists every metric that fell short, not just the first.
// Constructed once per invocation and immutable thereafter.
type Verdict struct {
	Pass     bool
	Failures []MetricFailure
}
