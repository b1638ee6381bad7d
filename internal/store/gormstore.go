package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telemed-server/internal/consultation"
	"telemed-server/internal/models"
)

// mutableColumns are the consultation columns a lifecycle transition may
// change. id, the owner and created_at are fixed once the row exists.
var mutableColumns = []string{
	"updated_at",
	"doctor_id",
	"doctor_name",
	"issue_id",
	"issue_name",
	"issue_category",
	"symptoms",
	"date",
	"time_slot",
	"status",
	"notes",
	"prescription",
	"cancel_reason",
	"version",
}

// GormStore persists consultations in the consultations table. It is safe to
// share between server instances: Insert and Replace touch one row, and
// Replace is conditional on the row's version.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection. The table is migrated by models.InitDB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Load returns every consultation in creation order.
func (s *GormStore) Load(ctx context.Context) ([]models.Consultation, error) {
	var all []models.Consultation
	if err := s.db.WithContext(ctx).Order("created_at asc, id asc").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("load consultations: %w", err)
	}
	return all, nil
}

// Save upserts every record in one statement, keeping each row's own
// timestamps. A repository on this store writes through Insert and Replace
// instead.
func (s *GormStore) Save(ctx context.Context, all []models.Consultation) error {
	if len(all) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(mutableColumns),
		}).
		Create(&all).Error
	if err != nil {
		return fmt.Errorf("save consultations: %w", err)
	}
	return nil
}

// Find reads one consultation by id.
func (s *GormStore) Find(ctx context.Context, id string) (*models.Consultation, error) {
	var rec models.Consultation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: consultation %s", consultation.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find consultation %s: %w", id, err)
	}
	return &rec, nil
}

// Insert adds a new consultation row.
func (s *GormStore) Insert(ctx context.Context, rec models.Consultation) error {
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert consultation %s: %w", rec.ID, err)
	}
	return nil
}

// Replace writes rec over the stored row if that row is still at version.
// UpdateColumns keeps rec.UpdatedAt instead of stamping the current time.
func (s *GormStore) Replace(ctx context.Context, rec models.Consultation, version int64) error {
	res := s.db.WithContext(ctx).
		Model(&models.Consultation{}).
		Where("id = ? AND version = ?", rec.ID, version).
		Select(mutableColumns).
		UpdateColumns(&rec)
	if res.Error != nil {
		return fmt.Errorf("update consultation %s: %w", rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: consultation %s is no longer at version %d", consultation.ErrConflict, rec.ID, version)
	}
	return nil
}
