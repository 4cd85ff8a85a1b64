// Package history records coverage runs in a local (or remote sqlite)
// database and renders differences between them.
package history

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oxhq/covgate/internal/model"
	"github.com/oxhq/covgate/models"
)

// ErrNotEnoughRuns is returned by LastTwo when fewer than two runs are
// recorded for a project.
var ErrNotEnoughRuns = errors.New("fewer than two recorded runs")

// Store persists and queries recorded coverage runs.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save records one completed check: the aggregate counts, the verdict
// and the per-unit rows in report order.
func (s *Store) Save(projectDir string, rep *model.CoverageReport, v model.Verdict) (*models.Run, error) {
	line, branch := rep.Overall()

	failures, err := json.Marshal(v.Failures)
	if err != nil {
		return nil, fmt.Errorf("encoding failures: %w", err)
	}

	run := &models.Run{
		ID:              uuid.NewString(),
		ProjectDir:      projectDir,
		LinesCovered:    line.Covered,
		LinesTotal:      line.Total,
		BranchesCovered: branch.Covered,
		BranchesTotal:   branch.Total,
		Passed:          v.Pass,
		Failures:        failures,
	}
	for i, u := range rep.Units {
		run.Units = append(run.Units, models.RunUnit{
			Position:         i,
			Name:             u.Name,
			RegionsCovered:   u.Regions.Covered,
			RegionsTotal:     u.Regions.Total,
			FunctionsCovered: u.Functions.Covered,
			FunctionsTotal:   u.Functions.Total,
			LinesCovered:     u.Lines.Covered,
			LinesTotal:       u.Lines.Total,
			BranchesCovered:  u.Branches.Covered,
			BranchesTotal:    u.Branches.Total,
		})
	}

	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}
	return run, nil
}

// Recent returns up to limit runs for the project, newest first, with
// unit rows loaded in report order.
func (s *Store) Recent(projectDir string, limit int) ([]models.Run, error) {
	var runs []models.Run
	err := s.db.
		Preload("Units", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("project_dir = ?", projectDir).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("loading runs: %w", err)
	}
	return runs, nil
}

// LastTwo returns the previous and current run for the project.
func (s *Store) LastTwo(projectDir string) (prev, cur *models.Run, err error) {
	runs, err := s.Recent(projectDir, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(runs) < 2 {
		return nil, nil, ErrNotEnoughRuns
	}
	return &runs[1], &runs[0], nil
}

// Report reconstructs a CoverageReport from a recorded run so it can be
// rendered or diffed. The aggregate row is rebuilt from the run's
// overall counts.
func Report(run *models.Run) *model.CoverageReport {
	rep := &model.CoverageReport{
		Total: &model.CoverageUnit{
			Name:     model.TotalName,
			Lines:    model.Ratio{Covered: run.LinesCovered, Total: run.LinesTotal},
			Branches: model.Ratio{Covered: run.BranchesCovered, Total: run.BranchesTotal},
		},
	}
	for _, u := range run.Units {
		rep.Units = append(rep.Units, model.CoverageUnit{
			Name:      u.Name,
			Regions:   model.Ratio{Covered: u.RegionsCovered, Total: u.RegionsTotal},
			Functions: model.Ratio{Covered: u.FunctionsCovered, Total: u.FunctionsTotal},
			Lines:     model.Ratio{Covered: u.LinesCovered, Total: u.LinesTotal},
			Branches:  model.Ratio{Covered: u.BranchesCovered, Total: u.BranchesTotal},
		})
	}
	return rep
}
