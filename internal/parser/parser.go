// Package parser turns the textual summary emitted by llvm-cov style
// report tools into a structured CoverageReport. Columns are located by
// header-name matching rather than character offsets, so cosmetic width
// changes in the tool's output do not break parsing.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oxhq/covgate/internal/model"
)

// ParseError reports malformed or incomplete report text. It is always
// fatal: a partially parsed report could silently misstate coverage.
type ParseError struct {
	Line   int // 1-based line number in the input, 0 when not line-specific
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("coverage report: %s", e.Reason)
	}
	return fmt.Sprintf("coverage report line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// column identifies what a report column holds.
type column int

const (
	colRegionsTotal column = iota
	colRegionsMissed
	colRegionsPercent
	colFunctionsTotal
	colFunctionsMissed
	colFunctionsPercent
	colLinesTotal
	colLinesMissed
	colLinesPercent
	colBranchesTotal
	colBranchesMissed
	colBranchesPercent
)

// headerColumns maps the tool's column titles to their meaning. The
// percentage column is titled "Cover" for regions, lines and branches
// alike, so it is resolved against the preceding count group; functions
// use the distinct title "Executed".
var headerColumns = map[string]column{
	"Regions":          colRegionsTotal,
	"Missed Regions":   colRegionsMissed,
	"Functions":        colFunctionsTotal,
	"Missed Functions": colFunctionsMissed,
	"Executed":         colFunctionsPercent,
	"Lines":            colLinesTotal,
	"Missed Lines":     colLinesMissed,
	"Branches":         colBranchesTotal,
	"Missed Branches":  colBranchesMissed,
}

var (
	ansiEscapes = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	columnSplit = regexp.MustCompile(`\s{2,}`)
)

// Parse converts raw report text into a CoverageReport. Preamble before
// the header, blank lines, dash separators and anything after the TOTAL
// row are skipped. A missing header, a missing TOTAL row or an
// unparseable row inside the table fail the whole parse.
func Parse(text string) (*model.CoverageReport, error) {
	lines := strings.Split(text, "\n")

	cols, next, err := findHeader(lines)
	if err != nil {
		return nil, err
	}

	report := &model.CoverageReport{Raw: text}
	for i := next; i < len(lines); i++ {
		line := stripANSI(lines[i])
		if strings.TrimSpace(line) == "" || isSeparator(line) {
			continue
		}
		unit, err := parseRow(line, cols, i+1)
		if err != nil {
			return nil, err
		}
		if unit.IsTotal() {
			report.Total = &unit
			return report, nil
		}
		report.Units = append(report.Units, unit)
	}
	return nil, &ParseError{Reason: "missing TOTAL row"}
}

// findHeader scans for the header line and returns the ordered column
// layout plus the index of the first line after the header.
func findHeader(lines []string) ([]column, int, error) {
	for i, raw := range lines {
		line := stripANSI(raw)
		fields := columnSplit.Split(strings.TrimSpace(line), -1)
		if len(fields) < 2 || fields[0] != "Filename" {
			continue
		}
		cols, err := resolveColumns(fields[1:], i+1, line)
		if err != nil {
			return nil, 0, err
		}
		return cols, i + 1, nil
	}
	return nil, 0, &ParseError{Reason: "missing report header"}
}

func resolveColumns(names []string, lineNo int, text string) ([]column, error) {
	cols := make([]column, 0, len(names))
	// Tracks which count group a bare "Cover" title belongs to.
	lastGroup := colRegionsTotal
	for _, name := range names {
		if name == "Cover" {
			switch lastGroup {
			case colRegionsTotal, colRegionsMissed:
				cols = append(cols, colRegionsPercent)
			case colLinesTotal, colLinesMissed:
				cols = append(cols, colLinesPercent)
			case colBranchesTotal, colBranchesMissed:
				cols = append(cols, colBranchesPercent)
			default:
				return nil, &ParseError{Line: lineNo, Text: text, Reason: fmt.Sprintf("misplaced %q column", name)}
			}
			continue
		}
		col, ok := headerColumns[name]
		if !ok {
			return nil, &ParseError{Line: lineNo, Text: text, Reason: fmt.Sprintf("unknown column %q", name)}
		}
		cols = append(cols, col)
		lastGroup = col
	}
	if !hasColumns(cols, colLinesTotal, colLinesMissed) {
		return nil, &ParseError{Line: lineNo, Text: text, Reason: "header lacks line coverage columns"}
	}
	if !hasColumns(cols, colBranchesTotal, colBranchesMissed) {
		return nil, &ParseError{Line: lineNo, Text: text, Reason: "header lacks branch coverage columns"}
	}
	return cols, nil
}

func hasColumns(cols []column, want ...column) bool {
	for _, w := range want {
		found := false
		for _, c := range cols {
			if c == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// parseRow maps one data row onto the header's column layout. The
// trailing fields are the numeric columns; everything before them is
// the unit name, which keeps paths containing spaces intact.
func parseRow(line string, cols []column, lineNo int) (model.CoverageUnit, error) {
	fields := strings.Fields(line)
	if len(fields) < len(cols)+1 {
		return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: "wrong number of columns"}
	}
	nameEnd := len(fields) - len(cols)
	unit := model.CoverageUnit{Name: strings.Join(fields[:nameEnd], " ")}

	totals := map[column]int64{}
	missed := map[column]int64{}
	for i, col := range cols {
		tok := fields[nameEnd+i]
		switch col {
		case colRegionsPercent, colFunctionsPercent, colLinesPercent, colBranchesPercent:
			if err := checkPercent(tok); err != nil {
				return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: err.Error()}
			}
		case colRegionsTotal, colFunctionsTotal, colLinesTotal, colBranchesTotal:
			n, err := strconv.ParseInt(tok, 10, 64)
			if err != nil || n < 0 {
				return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: fmt.Sprintf("invalid count %q", tok)}
			}
			totals[col] = n
		default:
			n, err := strconv.ParseInt(tok, 10, 64)
			if err != nil || n < 0 {
				return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: fmt.Sprintf("invalid count %q", tok)}
			}
			missed[col] = n
		}
	}

	var err error
	if unit.Regions, err = makeRatio(totals[colRegionsTotal], missed[colRegionsMissed]); err != nil {
		return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: "regions: " + err.Error()}
	}
	if unit.Functions, err = makeRatio(totals[colFunctionsTotal], missed[colFunctionsMissed]); err != nil {
		return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: "functions: " + err.Error()}
	}
	if unit.Lines, err = makeRatio(totals[colLinesTotal], missed[colLinesMissed]); err != nil {
		return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: "lines: " + err.Error()}
	}
	if unit.Branches, err = makeRatio(totals[colBranchesTotal], missed[colBranchesMissed]); err != nil {
		return model.CoverageUnit{}, &ParseError{Line: lineNo, Text: strings.TrimSpace(line), Reason: "branches: " + err.Error()}
	}
	return unit, nil
}

// makeRatio derives a covered/total pair from the tool's total and
// missed counts.
func makeRatio(total, miss int64) (model.Ratio, error) {
	if miss > total {
		return model.Ratio{}, fmt.Errorf("missed count %d exceeds total %d", miss, total)
	}
	return model.Ratio{Covered: total - miss, Total: total}, nil
}

// checkPercent validates a percentage token. "-" marks a dimension with
// nothing coverable (100% by convention); the value itself is otherwise
// unused since ratios are derived from the counts.
func checkPercent(tok string) error {
	if tok == "-" {
		return nil
	}
	trimmed := strings.TrimSuffix(tok, "%")
	if trimmed == tok {
		return fmt.Errorf("invalid percentage %q", tok)
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
		return fmt.Errorf("invalid percentage %q", tok)
	}
	return nil
}

func isSeparator(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && strings.Trim(trimmed, "-") == ""
}

func stripANSI(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiEscapes.ReplaceAllString(s, "")
}
