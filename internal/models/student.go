package models

import "time"

// Student holds learner attributes keyed 1:1 to a profile.
type Student struct {
	ProfileID        uint      `gorm:"primaryKey;autoIncrement:false" json:"profile_id"`
	BatchID          *uint     `gorm:"index" json:"batch_id"`
	SchoolID         *uint     `gorm:"index" json:"school_id"`
	EnrollmentNumber string    `gorm:"size:64" json:"enrollment_number"`
	GuardianName     string    `gorm:"size:255" json:"guardian_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Profile          Profile   `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"profile"`
	Batch            *Batch    `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
}

// Teacher holds instructor attributes keyed 1:1 to a profile.
type Teacher struct {
	ProfileID uint      `gorm:"primaryKey;autoIncrement:false" json:"profile_id"`
	BatchID   *uint     `gorm:"index" json:"batch_id"`
	SchoolID  *uint     `gorm:"index" json:"school_id"`
	Subject   string    `gorm:"size:128" json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Profile   Profile   `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"profile"`
	Batch     *Batch    `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
}

// SME holds subject-matter-expert attributes keyed 1:1 to a profile.
type SME struct {
	ProfileID uint      `gorm:"primaryKey;autoIncrement:false" json:"profile_id"`
	BatchID   *uint     `gorm:"index" json:"batch_id"`
	SchoolID  *uint     `gorm:"index" json:"school_id"`
	Expertise string    `gorm:"size:255" json:"expertise"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Profile   Profile   `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"profile"`
	Batch     *Batch    `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
}

// TableName keeps the acronym as a plain plural.
func (SME) TableName() string {
	return "smes"
}

// Member kinds, as used in route paths.
const (
	KindStudents = "students"
	KindTeachers = "teachers"
	KindSMEs     = "smes"
)

// RoleForKind maps a member kind to the role its accounts carry.
func RoleForKind(kind string) string {
	switch kind {
	case KindStudents:
		return RoleStudent
	case KindTeachers:
		return RoleTeacher
	case KindSMEs:
		return RoleSME
	default:
		return ""
	}
}
