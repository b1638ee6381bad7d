package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
)

// UserHandler handles user and doctor-profile requests.
type UserHandler struct {
	DB     *gorm.DB
	Engine *consultation.Engine
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, engine *consultation.Engine) *UserHandler {
	return &UserHandler{DB: db, Engine: engine}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	FirstName      string   `json:"firstName" binding:"required"`
	LastName       string   `json:"lastName" binding:"required"`
	Email          string   `json:"email" binding:"required,email"`
	Password       string   `json:"password" binding:"required,min=8"`
	Role           string   `json:"role" binding:"required,oneof=patient doctor admin"`
	Specialization string   `json:"specialization"`
	Languages      []string `json:"languages"`
}

// CreateUser handles creating a new user (admin). This is how doctor
// accounts are provisioned.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          strings.ToLower(req.Email),
		Role:           models.Role(req.Role),
		Status:         models.UserActive,
		Specialization: req.Specialization,
		Languages:      req.Languages,
	}
	if ok := createUser(c, h.DB, &user, req.Password); !ok {
		return
	}
	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users (admin). ?role= narrows the list.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.WithContext(c.Request.Context())
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Order("created_at asc").Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}
	utils.Success(c, "Users fetched successfully", sanitizeAll(users))
}

// SetUserStatusRequest activates or deactivates an account.
type SetUserStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=active inactive"`
}

// SetUserStatus handles deactivating or reactivating a user (admin).
// Deactivated doctors keep their history but take no new bookings.
func (h *UserHandler) SetUserStatus(c *gin.Context) {
	var req SetUserStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if !findUser(c, h.DB, &user, "id = ?", c.Param("id")) {
		return
	}
	user.Status = req.Status
	if err := h.DB.WithContext(c.Request.Context()).Model(&user).Update("status", req.Status).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}
	utils.Success(c, "User status updated successfully", user.Sanitize())
}

// GetDoctors lists active doctors with their weekly availability.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	query := h.DB.WithContext(c.Request.Context()).Where("role = ? AND status = ?", models.RoleDoctor, models.UserActive)
	if spec := c.Query("specialization"); spec != "" {
		query = query.Where("specialization = ?", spec)
	}

	var doctors []models.User
	if err := query.Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}
	utils.Success(c, "Doctors fetched successfully", sanitizeAll(doctors))
}

// GetAvailability returns a doctor's free slots on ?date=YYYY-MM-DD.
func (h *UserHandler) GetAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		utils.BadRequest(c, "date query parameter is required")
		return
	}
	slots, err := h.Engine.AvailableSlots(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	utils.Success(c, "Available slots fetched successfully", gin.H{"date": date, "slots": slots})
}

// UpdateAvailabilityRequest replaces the doctor's weekly template.
type UpdateAvailabilityRequest struct {
	AvailableSlots models.WeeklyTemplate `json:"availableSlots" binding:"required,dive"`
}

// UpdateMyAvailability lets a doctor edit their weekly template. Existing
// bookings are not touched.
func (h *UserHandler) UpdateMyAvailability(c *gin.Context) {
	var req UpdateAvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if msg := checkTemplate(req.AvailableSlots); msg != "" {
		utils.BadRequest(c, msg)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	var doctor models.User
	if !findUser(c, h.DB, &doctor, "id = ? AND role = ?", userID, models.RoleDoctor) {
		return
	}
	doctor.AvailableSlots = req.AvailableSlots
	if err := h.DB.WithContext(c.Request.Context()).Model(&doctor).Select("available_slots").Updates(&doctor).Error; err != nil {
		utils.InternalServerError(c, "Failed to update availability: "+err.Error())
		return
	}
	utils.Success(c, "Availability updated successfully", doctor.Sanitize())
}

// GetMyPatients returns the doctor's patient panel.
func (h *UserHandler) GetMyPatients(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	utils.Success(c, "Patients fetched successfully", h.Engine.UniquePatients(c.Request.Context(), userID))
}

// ScheduleEntry is one row of the doctor's day view.
type ScheduleEntry struct {
	models.Consultation
	Joinable bool `json:"joinable"`
}

// GetMySchedule returns the doctor's scheduled consultations on ?date=,
// today by default.
func (h *UserHandler) GetMySchedule(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	date := c.DefaultQuery("date", h.Engine.Now().In(h.Engine.Location()).Format(consultation.DateLayout))

	day, err := h.Engine.Schedule(c.Request.Context(), userID, date)
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	entries := make([]ScheduleEntry, len(day))
	for i, rec := range day {
		entries[i] = ScheduleEntry{Consultation: rec, Joinable: h.Engine.IsSoon(rec)}
	}
	utils.Success(c, "Schedule fetched successfully", gin.H{"date": date, "consultations": entries})
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// checkTemplate returns a message describing the first invalid entry.
func checkTemplate(tpl models.WeeklyTemplate) string {
	seen := make(map[string]bool)
	for _, day := range tpl {
		key := strings.ToLower(strings.TrimSpace(day.Day))
		if !weekdays[key] {
			return "Unknown weekday: " + day.Day
		}
		if seen[key] {
			return "Weekday listed twice: " + day.Day
		}
		seen[key] = true
		for _, slot := range day.Slots {
			// any date works; only the label is checked
			if _, err := consultation.ToInstant("2025-01-06", slot, nil); err != nil {
				return "Invalid slot label: " + slot
			}
		}
	}
	return ""
}

func sanitizeAll(users []models.User) []models.UserSanitized {
	out := make([]models.UserSanitized, len(users))
	for i := range users {
		out[i] = users[i].Sanitize()
	}
	return out
}

// findUser loads one user and writes 404/500 itself on failure.
func findUser(c *gin.Context, db *gorm.DB, user *models.User, query string, args ...interface{}) bool {
	err := db.WithContext(c.Request.Context()).Where(query, args...).First(user).Error
	switch {
	case err == nil:
		return true
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.NotFound(c, "User not found")
	default:
		utils.InternalServerError(c, "Database error: "+err.Error())
	}
	return false
}

// createUser hashes the password and inserts user unless the email is taken.
func createUser(c *gin.Context, db *gorm.DB, user *models.User, password string) bool {
	var existing models.User
	err := db.WithContext(c.Request.Context()).Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		utils.Conflict(c, "User with this email already exists")
		return false
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return false
	}

	if err := user.SetPassword(password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return false
	}
	if err := db.WithContext(c.Request.Context()).Create(user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return false
	}
	return true
}
