package history

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/oxhq/covgate/internal/report"
	"github.com/oxhq/covgate/models"
)

// Diff renders two recorded runs as tables and returns their unified
// diff. An empty string means coverage did not change between them.
func Diff(prev, cur *models.Run) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        strings.SplitAfter(report.RenderTable(Report(prev)), "\n"),
		B:        strings.SplitAfter(report.RenderTable(Report(cur)), "\n"),
		FromFile: fmt.Sprintf("run %s (%s)", prev.ID, prev.CreatedAt.Format("2006-01-02 15:04:05")),
		ToFile:   fmt.Sprintf("run %s (%s)", cur.ID, cur.CreatedAt.Format("2006-01-02 15:04:05")),
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("rendering diff: %w", err)
	}
	return text, nil
}
