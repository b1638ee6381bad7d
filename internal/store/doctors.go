package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"telemed-server/internal/consultation"
	"telemed-server/internal/models"
)

// DoctorTemplates reads weekly availability templates from active doctor
// profiles in the users table.
type DoctorTemplates struct {
	db *gorm.DB
}

// NewDoctorTemplates returns a consultation.TemplateSource backed by db.
func NewDoctorTemplates(db *gorm.DB) *DoctorTemplates {
	return &DoctorTemplates{db: db}
}

// WeeklyTemplate returns the doctor's template. Unknown or deactivated doctors
// yield consultation.ErrNotFound.
func (d *DoctorTemplates) WeeklyTemplate(ctx context.Context, doctorID string) (models.WeeklyTemplate, error) {
	var doctor models.User
	err := d.db.WithContext(ctx).
		Where("id = ? AND role = ? AND status = ?", doctorID, models.RoleDoctor, models.UserActive).
		First(&doctor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: doctor %s", consultation.ErrNotFound, doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("load doctor %s: %w", doctorID, err)
	}
	if doctor.AvailableSlots == nil {
		return models.WeeklyTemplate{}, nil
	}
	return doctor.AvailableSlots, nil
}
