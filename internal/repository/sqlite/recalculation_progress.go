package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// progressRow stores the checkpoint as JSON next to the columns used for lookup.
type progressRow struct {
	ProcessID      string    `gorm:"primaryKey;size:64"`
	Status         string    `gorm:"size:20;index"`
	StartDate      string    `gorm:"size:10"`
	EndDate        string    `gorm:"size:10"`
	State          []byte    `gorm:"not null"`
	CheckpointedAt time.Time `gorm:"index"`
}

func (progressRow) TableName() string {
	return "recalculation_progress"
}

// ProgressStore implements recalculation.ProgressStore on an embedded database.
type ProgressStore struct {
	db *gorm.DB
}

func NewProgressStore(db *gorm.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

var _ recalculation.ProgressStore = (*ProgressStore)(nil)

// Migrate creates the checkpoint table.
func (s *ProgressStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&progressRow{}); err != nil {
		return fmt.Errorf("failed to migrate recalculation_progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Save(ctx context.Context, progress *recalculation.Progress) error {
	state, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode recalculation progress: %w", err)
	}

	row := progressRow{
		ProcessID:      progress.ProcessID,
		Status:         string(progress.Status),
		StartDate:      progress.StartDate,
		EndDate:        progress.EndDate,
		State:          state,
		CheckpointedAt: progress.UpdatedAt.UTC(),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "process_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save recalculation progress: %w", err)
	}
	return nil
}

func (s *ProgressStore) Load(ctx context.Context, processID string) (*recalculation.Progress, error) {
	var row progressRow
	err := s.db.WithContext(ctx).Where("process_id = ?", processID).First(&row).Error
	return decode(row, err)
}

func (s *ProgressStore) Latest(ctx context.Context) (*recalculation.Progress, error) {
	var row progressRow
	err := s.db.WithContext(ctx).Order("checkpointed_at DESC").Order("process_id DESC").First(&row).Error
	return decode(row, err)
}

func decode(row progressRow, err error) (*recalculation.Progress, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, recalculation.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to load recalculation progress: %w", err)
	}

	var progress recalculation.Progress
	if err := json.Unmarshal(row.State, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode recalculation progress %s: %w", row.ProcessID, err)
	}
	return &progress, nil
}
