package dto

import (
	"time"

	"github.com/noah-isme/edudash-api/internal/attendance"
	"github.com/noah-isme/edudash-api/internal/models"
)

// SchoolCreateRequest creates a school.
type SchoolCreateRequest struct {
	Name    string `json:"name" validate:"notblank,max=255"`
	Address string `json:"address" validate:"omitempty,max=1000"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
}

// SchoolUpdateRequest patches a school.
type SchoolUpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,notblank,max=255"`
	Address *string `json:"address" validate:"omitempty,max=1000"`
	Phone   *string `json:"phone" validate:"omitempty,phone"`
}

// SchoolResponse serializes a school.
type SchoolResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	LogoURL   string    `json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSchoolResponse converts a school model into a DTO.
func NewSchoolResponse(school models.School) SchoolResponse {
	return SchoolResponse{
		ID:        school.ID,
		Name:      school.Name,
		Address:   school.Address,
		Phone:     school.Phone,
		LogoURL:   school.LogoURL,
		CreatedAt: school.CreatedAt,
		UpdatedAt: school.UpdatedAt,
	}
}

// BatchCreateRequest creates a batch. Dates use YYYY-MM-DD.
type BatchCreateRequest struct {
	Name      string `json:"name" validate:"notblank,max=255"`
	SchoolID  *uint  `json:"school_id"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// BatchUpdateRequest patches a batch. An empty date string clears that bound.
type BatchUpdateRequest struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=255"`
	SchoolID  *uint   `json:"school_id"`
	StartDate *string `json:"start_date" validate:"omitempty,max=10"`
	EndDate   *string `json:"end_date" validate:"omitempty,max=10"`
}

// BatchResponse serializes a batch.
type BatchResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	SchoolID  *uint     `json:"school_id"`
	StartDate *string   `json:"start_date"`
	EndDate   *string   `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := attendance.FormatDate(*t)
	return &s
}

// NewBatchResponse converts a batch model into a DTO.
func NewBatchResponse(batch models.Batch) BatchResponse {
	return BatchResponse{
		ID:        batch.ID,
		Name:      batch.Name,
		SchoolID:  batch.SchoolID,
		StartDate: formatOptionalDate(batch.StartDate),
		EndDate:   formatOptionalDate(batch.EndDate),
		CreatedAt: batch.CreatedAt,
		UpdatedAt: batch.UpdatedAt,
	}
}

// SchoolListResponse wraps a paginated school list.
type SchoolListResponse struct {
	Items      []SchoolResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// BatchListRequest filters batches.
type BatchListRequest struct {
	Page     int
	PageSize int
	Search   string
	SchoolID *uint
}

// BatchListResponse wraps a paginated batch list.
type BatchListResponse struct {
	Items      []BatchResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}
