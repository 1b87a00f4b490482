package models

import (
	"time"

	"github.com/noah-isme/edudash-api/internal/attendance"
)

// School groups batches and people under one institution.
type School struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Address   string    `gorm:"type:text" json:"address"`
	Phone     string    `gorm:"size:32" json:"phone"`
	LogoURL   string    `gorm:"size:512" json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Batch is a cohort sharing an enrollment window.
type Batch struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:255;uniqueIndex;not null" json:"name"`
	SchoolID  *uint      `gorm:"index" json:"school_id"`
	StartDate *time.Time `gorm:"type:date" json:"start_date"`
	EndDate   *time.Time `gorm:"type:date" json:"end_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Window returns the batch enrollment interval used to clip attendance dates.
func (b Batch) Window() attendance.Window {
	return attendance.NewWindow(b.StartDate, b.EndDate)
}
