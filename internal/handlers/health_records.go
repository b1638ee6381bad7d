package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
)

// HealthRecordHandler manages a patient's health profile.
type HealthRecordHandler struct {
	DB *gorm.DB
}

// NewHealthRecordHandler creates a new HealthRecordHandler.
func NewHealthRecordHandler(db *gorm.DB) *HealthRecordHandler {
	return &HealthRecordHandler{DB: db}
}

// HealthRecordRequest is the body for creating or replacing a record.
type HealthRecordRequest struct {
	Type    models.HealthRecordType     `json:"type" binding:"required,oneof=allergy condition medication surgery"`
	Name    string                      `json:"name" binding:"required"`
	Details *models.HealthRecordDetails `json:"details"`
}

// List returns the caller's records. Doctors and admins pass ?patientId=.
func (h *HealthRecordHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	role, _ := middleware.GetUserRoleFromContext(c)

	patientID := userID
	if role != models.RolePatient {
		patientID = c.Query("patientId")
		if patientID == "" {
			utils.BadRequest(c, "patientId query parameter is required")
			return
		}
	}

	var records []models.HealthRecord
	if err := h.DB.WithContext(c.Request.Context()).Where("patient_id = ?", patientID).Order("created_at asc").Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch health records: "+err.Error())
		return
	}
	utils.Success(c, "Health records fetched successfully", records)
}

// Create adds a record to the patient's own profile.
func (h *HealthRecordHandler) Create(c *gin.Context) {
	var req HealthRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)

	record := models.HealthRecord{
		PatientID: userID,
		Type:      req.Type,
		Name:      req.Name,
		Details:   req.Details,
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to create health record: "+err.Error())
		return
	}
	utils.Created(c, "Health record created successfully", record)
}

// Update replaces one of the patient's own records.
func (h *HealthRecordHandler) Update(c *gin.Context) {
	var req HealthRecordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	record, ok := h.owned(c)
	if !ok {
		return
	}

	record.Type = req.Type
	record.Name = req.Name
	record.Details = req.Details
	if err := h.DB.WithContext(c.Request.Context()).Save(record).Error; err != nil {
		utils.InternalServerError(c, "Failed to update health record: "+err.Error())
		return
	}
	utils.Success(c, "Health record updated successfully", record)
}

// Delete removes one of the patient's own records.
func (h *HealthRecordHandler) Delete(c *gin.Context) {
	record, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Delete(&models.HealthRecord{}, "id = ?", record.ID).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete health record: "+err.Error())
		return
	}
	utils.Success(c, "Health record deleted successfully", nil)
}

func (h *HealthRecordHandler) owned(c *gin.Context) (*models.HealthRecord, bool) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var record models.HealthRecord
	if err := h.DB.WithContext(c.Request.Context()).First(&record, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Health record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	if record.PatientID != userID {
		utils.Forbidden(c, "You can only modify your own health records")
		return nil, false
	}
	return &record, true
}
