package model

import "fmt"

// TotalName is the unit identifier the coverage tool uses for its
// aggregate row.
const TotalName = "TOTAL"

// Ratio is a covered/total count pair for one coverage dimension.
// A (0, 0) pair is valid and means 100% by convention: nothing was
// coverable, so nothing was missed.
type Ratio struct {
	Covered int64 `json:"covered"`
	Total   int64 `json:"total"`
}

// Percent returns the ratio as a percentage in [0, 100].
func (r Ratio) Percent() float64 {
	if r.Total == 0 {
		return 100.0
	}
	return float64(r.Covered) / float64(r.Total) * 100.0
}

// Missed returns the count of coverable units not covered.
func (r Ratio) Missed() int64 {
	return r.Total - r.Covered
}

// Add returns the element-wise sum of two ratios.
func (r Ratio) Add(o Ratio) Ratio {
	return Ratio{Covered: r.Covered + o.Covered, Total: r.Total + o.Total}
}

// String renders the ratio as "covered/total".
func (r Ratio) String() string {
	return fmt.Sprintf("%d/%d", r.Covered, r.Total)
}

// CoverageUnit is one row of the coverage report: a source unit and its
// counts per dimension. Regions and Functions are carried for display
// but only Lines and Branches are evaluated against thresholds.
type CoverageUnit struct {
	Name      string
	Regions   Ratio
	Functions Ratio
	Lines     Ratio
	Branches  Ratio
}

// IsTotal reports whether this unit is the report's aggregate row.
func (u CoverageUnit) IsTotal() bool {
	return u.Name == TotalName
}

// CoverageReport is the parsed form of one coverage summary: unit rows
// in report order plus the explicitly identified aggregate row. Raw
// keeps the tool's original text so the reporter can pass it through
// unchanged. A report is never mutated after the parser returns it.
type CoverageReport struct {
	Units []CoverageUnit
	Total *CoverageUnit
	Raw   string
}

// Overall returns the report-wide line and branch ratios. The designated
// aggregate row is authoritative when present: the external tool may
// apply its own accounting, so its totals are used directly rather than
// recomputed. Without one (the parser normally rejects such input, but
// callers constructing reports by hand may omit it) the unit rows are
// summed.
func (r *CoverageReport) Overall() (line, branch Ratio) {
	if r.Total != nil {
		return r.Total.Lines, r.Total.Branches
	}
	for _, u := range r.Units {
		line = line.Add(u.Lines)
		branch = branch.Add(u.Branches)
	}
	return line, branch
}
