package history

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	covdb "github.com/oxhq/covgate/db"
	"github.com/oxhq/covgate/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, covdb.Migrate(conn))
	return NewStore(conn)
}

func reportWithLines(covered, total int64) *model.CoverageReport {
	return &model.CoverageReport{
		Units: []model.CoverageUnit{
			{
				Name:     "src/lib.rs",
				Lines:    model.Ratio{Covered: covered, Total: total},
				Branches: model.Ratio{Covered: 4, Total: 4},
			},
		},
		Total: &model.CoverageUnit{
			Name:     model.TotalName,
			Lines:    model.Ratio{Covered: covered, Total: total},
			Branches: model.Ratio{Covered: 4, Total: 4},
		},
	}
}

func TestSaveAndRecent(t *testing.T) {
	store := setupStore(t)

	verdict := model.Verdict{
		Pass: false,
		Failures: []model.MetricFailure{
			{Metric: "line", Actual: 80, Required: 100, Shortfall: 20, Missed: 8},
		},
	}
	run, err := store.Save("/work/proj", reportWithLines(32, 40), verdict)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	runs, err := store.Recent("/work/proj", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	loaded := runs[0]
	assert.Equal(t, int64(32), loaded.LinesCovered)
	assert.Equal(t, int64(40), loaded.LinesTotal)
	assert.False(t, loaded.Passed)
	assert.JSONEq(t,
		`[{"metric":"line","actual":80,"required":100,"shortfall":20,"missed":8}]`,
		string(loaded.Failures))
	require.Len(t, loaded.Units, 1)
	assert.Equal(t, "src/lib.rs", loaded.Units[0].Name)

	// Other projects are isolated.
	other, err := store.Recent("/work/other", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestLastTwo(t *testing.T) {
	store := setupStore(t)

	_, _, err := store.LastTwo("/work/proj")
	assert.ErrorIs(t, err, ErrNotEnoughRuns)

	first, err := store.Save("/work/proj", reportWithLines(30, 40), model.Verdict{Pass: false})
	require.NoError(t, err)
	second, err := store.Save("/work/proj", reportWithLines(40, 40), model.Verdict{Pass: true})
	require.NoError(t, err)

	prev, cur, err := store.LastTwo("/work/proj")
	require.NoError(t, err)
	// created_at has second resolution in sqlite; fall back to checking
	// both runs are present rather than strict ordering of IDs.
	ids := []string{prev.ID, cur.ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}

func TestReportReconstruction(t *testing.T) {
	store := setupStore(t)

	_, err := store.Save("/work/proj", reportWithLines(32, 40), model.Verdict{Pass: false})
	require.NoError(t, err)

	runs, err := store.Recent("/work/proj", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	rep := Report(&runs[0])
	require.NotNil(t, rep.Total)
	assert.Equal(t, model.Ratio{Covered: 32, Total: 40}, rep.Total.Lines)
	require.Len(t, rep.Units, 1)
	assert.Equal(t, "src/lib.rs", rep.Units[0].Name)

	line, branch := rep.Overall()
	assert.Equal(t, model.Ratio{Covered: 32, Total: 40}, line)
	assert.Equal(t, model.Ratio{Covered: 4, Total: 4}, branch)
}

func TestDiff(t *testing.T) {
	store := setupStore(t)

	_, err := store.Save("/work/proj", reportWithLines(30, 40), model.Verdict{Pass: false})
	require.NoError(t, err)
	_, err = store.Save("/work/proj", reportWithLines(40, 40), model.Verdict{Pass: true})
	require.NoError(t, err)

	runs, err := store.Recent("/work/proj", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	text, err := Diff(&runs[1], &runs[0])
	require.NoError(t, err)
	assert.Contains(t, text, "---")
	assert.Contains(t, text, "+++")
	assert.NotEmpty(t, text)
}

func TestDiffIdenticalRunsIsEmpty(t *testing.T) {
	store := setupStore(t)

	_, err := store.Save("/work/proj", reportWithLines(32, 40), model.Verdict{Pass: false})
	require.NoError(t, err)
	_, err = store.Save("/work/proj", reportWithLines(32, 40), model.Verdict{Pass: false})
	require.NoError(t, err)

	// Reload with units so both sides render fully.
	runs, err := store.Recent("/work/proj", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	text, err := Diff(&runs[1], &runs[0])
	require.NoError(t, err)
	// Same coverage tables produce no hunks; only differing headers
	// would appear, and difflib omits output entirely without hunks.
	assert.Empty(t, text)
}
