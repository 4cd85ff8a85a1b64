package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run records one coverage check: the overall counts, the verdict, and
// the per-unit rows for later diffing.
type Run struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	ProjectDir string `gorm:"type:varchar(512);index"`

	// Overall counts from the report's aggregate row
	LinesCovered    int64
	LinesTotal      int64
	BranchesCovered int64
	BranchesTotal   int64

	// Verdict
	Passed   bool
	Failures datatypes.JSON `gorm:"type:jsonb"` // []model.MetricFailure

	CreatedAt time.Time `gorm:"autoCreateTime;index"`

	// Relationships
	Units []RunUnit `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for Run
func (Run) TableName() string {
	return "runs"
}

// RunUnit is one per-unit row of a recorded run, kept in report order.
type RunUnit struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	RunID string `gorm:"type:varchar(36);index;not null"`

	Position int    `gorm:"not null"` // report order
	Name     string `gorm:"type:varchar(512);not null"`

	RegionsCovered   int64
	RegionsTotal     int64
	FunctionsCovered int64
	FunctionsTotal   int64
	LinesCovered     int64
	LinesTotal       int64
	BranchesCovered  int64
	BranchesTotal    int64
}

// TableName returns the table name for RunUnit
func (RunUnit) TableName() string {
	return "run_units"
}
