package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// UserStatus marks deactivated accounts; doctors are deactivated, never deleted.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User represents a user in the system
type User struct {
	BaseModel
	Email          string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password       string         `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName      string         `gorm:"size:100" json:"firstName"`
	LastName       string         `gorm:"size:100" json:"lastName"`
	Role           Role           `gorm:"size:20;default:'patient'" json:"role"`
	Status         UserStatus     `gorm:"size:20;default:'active'" json:"status"`
	PhoneNumber    string         `json:"phoneNumber,omitempty"`
	Specialization string         `gorm:"size:100" json:"specialization,omitempty"`
	Languages      []string       `gorm:"serializer:json;type:text" json:"languages,omitempty"`
	AvailableSlots WeeklyTemplate `gorm:"serializer:json;type:text" json:"availableSlots,omitempty"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Role           Role           `json:"role"`
	Status         UserStatus     `json:"status"`
	Specialization string         `json:"specialization,omitempty"`
	Languages      []string       `json:"languages,omitempty"`
	AvailableSlots WeeklyTemplate `json:"availableSlots,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// FullName joins first and last name the way it is shown on consultations.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize strips credentials from a User.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:             u.ID,
		Name:           u.FullName(),
		Email:          u.Email,
		Role:           u.Role,
		Status:         u.Status,
		Specialization: u.Specialization,
		Languages:      u.Languages,
		AvailableSlots: u.AvailableSlots,
		CreatedAt:      u.CreatedAt,
	}
}
