package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/deskbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists records in the bot_states table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db. The caller is responsible for
// migrating models.BotState.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("state: gorm store: db is required")
	}
	return &GormStore{db: db}, nil
}

// Get loads the row for key.
func (s *GormStore) Get(ctx context.Context, key Key) (Record, error) {
	var row models.BotState
	err := s.db.WithContext(ctx).
		Where("partition_key = ? AND row_key = ?", key.Partition, key.Row).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("state: gorm get %s: %w", key, err)
	}
	return Record{Data: row.Data, Compressed: row.Compressed, UpdatedAt: row.UpdatedAt}, nil
}

// Put upserts the row for key.
func (s *GormStore) Put(ctx context.Context, key Key, rec Record) error {
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	row := models.BotState{
		PartitionKey: key.Partition,
		RowKey:       key.Row,
		Data:         rec.Data,
		Compressed:   rec.Compressed,
		UpdatedAt:    updated,
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "partition_key"}, {Name: "row_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "compressed", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("state: gorm put %s: %w", key, result.Error)
	}
	return nil
}

// Delete removes the row for key.
func (s *GormStore) Delete(ctx context.Context, key Key) error {
	err := s.db.WithContext(ctx).
		Where("partition_key = ? AND row_key = ?", key.Partition, key.Row).
		Delete(&models.BotState{}).Error
	if err != nil {
		return fmt.Errorf("state: gorm delete %s: %w", key, err)
	}
	return nil
}

// PurgeBefore deletes rows not updated since cutoff.
func (s *GormStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&models.BotState{})
	if result.Error != nil {
		return 0, fmt.Errorf("state: gorm purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}
