package dto

import (
	"time"

	"github.com/noah-isme/edudash-api/internal/models"
)

// SessionListRequest filters the session list. From and To bound starts_at.
type SessionListRequest struct {
	Page      int
	PageSize  int
	BatchID   *uint
	TeacherID *uint
	Status    string
	From      *time.Time
	To        *time.Time
}

// SessionCreateRequest schedules a session. Times use RFC 3339.
type SessionCreateRequest struct {
	Course      string `json:"course" validate:"notblank,max=255"`
	TeacherID   uint   `json:"teacher_id" validate:"required"`
	BatchID     uint   `json:"batch_id" validate:"required"`
	StartsAt    string `json:"starts_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt      string `json:"ends_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	MeetingLink string `json:"meeting_link" validate:"omitempty,url,max=512"`
}

// SessionUpdateRequest patches a scheduled session.
type SessionUpdateRequest struct {
	Course      *string `json:"course" validate:"omitempty,notblank,max=255"`
	TeacherID   *uint   `json:"teacher_id" validate:"omitempty,min=1"`
	BatchID     *uint   `json:"batch_id" validate:"omitempty,min=1"`
	StartsAt    *string `json:"starts_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt      *string `json:"ends_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	MeetingLink *string `json:"meeting_link" validate:"omitempty,max=512"`
}

// SessionStatusRequest moves a session through its lifecycle.
type SessionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ongoing completed cancelled"`
}

// SessionResponse serializes a session.
type SessionResponse struct {
	ID          uint      `json:"id"`
	Course      string    `json:"course"`
	TeacherID   uint      `json:"teacher_id"`
	TeacherName string    `json:"teacher_name"`
	BatchID     uint      `json:"batch_id"`
	BatchName   string    `json:"batch_name"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	MeetingLink string    `json:"meeting_link"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionListResponse wraps a paginated session list.
type SessionListResponse struct {
	Items      []SessionResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewSessionResponse converts a session model into a DTO.
func NewSessionResponse(session models.Session) SessionResponse {
	return SessionResponse{
		ID:          session.ID,
		Course:      session.Course,
		TeacherID:   session.TeacherID,
		TeacherName: session.Teacher.Name,
		BatchID:     session.BatchID,
		BatchName:   session.Batch.Name,
		StartsAt:    session.StartsAt,
		EndsAt:      session.EndsAt,
		MeetingLink: session.MeetingLink,
		Status:      session.Status,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}
