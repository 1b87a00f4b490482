package models

import "time"

// AttendanceRecord stores one person's status on one calendar date.
type AttendanceRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PersonID  uint      `gorm:"not null;uniqueIndex:idx_attendance_person_date" json:"person_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_attendance_person_date;index" json:"date"`
	Status    string    `gorm:"size:32;not null" json:"status"`
	MarkedBy  *uint     `json:"marked_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
