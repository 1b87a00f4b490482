package models

import (
	"strings"
	"time"
)

const (
	// ProfileStatusActive marks a profile that can sign in and be marked.
	ProfileStatusActive = "active"
	// ProfileStatusInactive marks a profile that is kept for history only.
	ProfileStatusInactive = "inactive"
)

// Role names stored in user_roles.
const (
	RoleAdmin       = "admin"
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
	RoleSME         = "sme"
	RoleSchoolAdmin = "school_admin"
)

// Profile is the identity record shared by every role.
type Profile struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Status       string    `gorm:"size:32;not null;default:active" json:"status"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the profile is active.
func (p Profile) IsActive() bool {
	return strings.EqualFold(p.Status, ProfileStatusActive)
}

// UserRole maps a profile to its single dashboard role.
type UserRole struct {
	ProfileID uint      `gorm:"primaryKey" json:"profile_id"`
	Role      string    `gorm:"size:32;not null;index" json:"role"`
	SchoolID  *uint     `gorm:"index" json:"school_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRole reports whether the value names a known role.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleSME, RoleSchoolAdmin:
		return true
	default:
		return false
	}
}
