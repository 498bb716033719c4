// services/history_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skport-checkin/models"
)

// ErrRunNotFound is returned when no run has been recorded yet.
var ErrRunNotFound = errors.New("run not found")

type HistoryService struct {
	DB *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{DB: db}
}

// Migrate creates or updates the history tables.
func (s *HistoryService) Migrate() error {
	return s.DB.AutoMigrate(&models.CheckInRun{}, &models.ClaimRecord{})
}

// SaveRun stores the run row and one record per result in a single transaction.
func (s *HistoryService) SaveRun(ctx context.Context, run *models.CheckInRun) error {
	for i := range run.Results {
		if run.Results[i].ID == "" {
			run.Results[i].ID = uuid.NewString()
		}
		run.Results[i].RunID = run.ID
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(run).Error; err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
		if len(run.Results) == 0 {
			return nil
		}
		if err := tx.Create(&run.Results).Error; err != nil {
			return fmt.Errorf("failed to insert claim records for run %s: %w", run.ID, err)
		}
		return nil
	})
}

// ListRuns returns the most recent runs first, with their records.
func (s *HistoryService) ListRuns(ctx context.Context, limit int) ([]models.CheckInRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.CheckInRun
	err := s.DB.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run or ErrRunNotFound.
func (s *HistoryService) LatestRun(ctx context.Context) (*models.CheckInRun, error) {
	var run models.CheckInRun
	err := s.DB.WithContext(ctx).
		Preload("Results", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return &run, nil
}
