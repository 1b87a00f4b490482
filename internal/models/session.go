package models

import "time"

// Session lifecycle states.
const (
	SessionStatusScheduled = "scheduled"
	SessionStatusOngoing   = "ongoing"
	SessionStatusCompleted = "completed"
	SessionStatusCancelled = "cancelled"
)

// Session is a scheduled meeting of a batch with a teacher.
type Session struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Course      string    `gorm:"size:255;not null" json:"course"`
	TeacherID   uint      `gorm:"not null;index" json:"teacher_id"`
	BatchID     uint      `gorm:"not null;index" json:"batch_id"`
	StartsAt    time.Time `gorm:"not null;index" json:"starts_at"`
	EndsAt      time.Time `gorm:"not null" json:"ends_at"`
	MeetingLink string    `gorm:"size:512" json:"meeting_link"`
	Status      string    `gorm:"size:32;not null;default:scheduled" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Teacher     Profile   `gorm:"foreignKey:TeacherID" json:"teacher"`
	Batch       Batch     `gorm:"foreignKey:BatchID" json:"batch"`
}

var sessionTransitions = map[string][]string{
	SessionStatusScheduled: {SessionStatusOngoing, SessionStatusCancelled},
	SessionStatusOngoing:   {SessionStatusCompleted, SessionStatusCancelled},
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range sessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
