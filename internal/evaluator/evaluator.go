// Package evaluator checks measured coverage ratios against configured
// minimums.
package evaluator

import (
	"math"

	"github.com/oxhq/covgate/internal/model"
)

// Metric names carried on failures.
const (
	MetricLine   = "line"
	MetricBranch = "branch"
)

// Thresholds are scaled to parts-per-million so the boundary comparison
// is exact integer arithmetic: a ratio exactly at its threshold passes,
// one covered unit less fails, with no floating-point drift.
const ppmScale = 1_000_000

// Evaluate compares the overall line and branch ratios against the
// thresholds and returns a verdict listing every metric that fell
// short. Pure function; thresholds are assumed validated.
func Evaluate(line, branch model.Ratio, th model.Thresholds) model.Verdict {
	v := model.Verdict{Pass: true}
	check(&v, MetricLine, line, th.MinLine)
	check(&v, MetricBranch, branch, th.MinBranch)
	return v
}

func check(v *model.Verdict, metric string, r model.Ratio, min float64) {
	if meets(r, min) {
		return
	}
	required := min * 100
	v.Pass = false
	v.Failures = append(v.Failures, model.MetricFailure{
		Metric:    metric,
		Actual:    r.Percent(),
		Required:  required,
		Shortfall: required - r.Percent(),
		Missed:    r.Missed(),
	})
}

// meets reports whether covered/total >= min by cross-multiplication.
// A zero total passes any threshold: nothing coverable means 100% by
// convention.
func meets(r model.Ratio, min float64) bool {
	ppm := int64(math.Round(min * ppmScale))
	return r.Covered*ppmScale >= ppm*r.Total
}
