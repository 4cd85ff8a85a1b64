package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Run{}, &RunUnit{}))
	return db
}

func TestRunTableName(t *testing.T) {
	assert.Equal(t, "runs", Run{}.TableName())
}

func TestRunUnitTableName(t *testing.T) {
	assert.Equal(t, "run_units", RunUnit{}.TableName())
}

func TestRunRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	failures, err := json.Marshal([]map[string]any{
		{"metric": "line", "actual": 92.3, "required": 100.0},
	})
	require.NoError(t, err)

	run := Run{
		ID:              "run-001",
		ProjectDir:      "/work/proj",
		LinesCovered:    87,
		LinesTotal:      95,
		BranchesCovered: 24,
		BranchesTotal:   28,
		Passed:          false,
		Failures:        failures,
		Units: []RunUnit{
			{Position: 0, Name: "src/lib.rs", LinesCovered: 32, LinesTotal: 40, BranchesCovered: 8, BranchesTotal: 12},
			{Position: 1, Name: "src/parser.rs", LinesCovered: 55, LinesTotal: 55, BranchesCovered: 16, BranchesTotal: 16},
		},
	}
	require.NoError(t, db.Create(&run).Error)

	var loaded Run
	err = db.Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&loaded, "id = ?", "run-001").Error
	require.NoError(t, err)

	assert.Equal(t, "/work/proj", loaded.ProjectDir)
	assert.False(t, loaded.Passed)
	assert.Equal(t, int64(87), loaded.LinesCovered)
	assert.WithinDuration(t, time.Now(), loaded.CreatedAt, time.Minute)

	require.Len(t, loaded.Units, 2)
	assert.Equal(t, "src/lib.rs", loaded.Units[0].Name)
	assert.Equal(t, "src/parser.rs", loaded.Units[1].Name)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(loaded.Failures, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "line", decoded[0]["metric"])
}
