package dto

import (
	"time"

	"github.com/noah-isme/edudash-api/internal/models"
)

// MemberListRequest defines filters for listing students, teachers or SMEs.
type MemberListRequest struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	BatchID  *uint
	SchoolID *uint
}

// MemberCreateRequest creates a profile plus its role record. Role-specific
// fields that do not apply to the kind are ignored.
type MemberCreateRequest struct {
	Name             string `json:"name" validate:"notblank,max=255"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Phone            string `json:"phone" validate:"omitempty,phone"`
	Status           string `json:"status" validate:"omitempty,oneof=active inactive"`
	BatchID          *uint  `json:"batch_id"`
	SchoolID         *uint  `json:"school_id"`
	EnrollmentNumber string `json:"enrollment_number" validate:"omitempty,max=64"`
	GuardianName     string `json:"guardian_name" validate:"omitempty,max=255"`
	Subject          string `json:"subject" validate:"omitempty,max=128"`
	Expertise        string `json:"expertise" validate:"omitempty,max=255"`
	Password         string `json:"password" validate:"omitempty,min=8,max=72"`
}

// MemberUpdateRequest patches a member. ClearBatch detaches the batch.
type MemberUpdateRequest struct {
	Name             *string `json:"name" validate:"omitempty,notblank,max=255"`
	Email            *string `json:"email" validate:"omitempty,email,max=255"`
	Phone            *string `json:"phone" validate:"omitempty,phone"`
	Status           *string `json:"status" validate:"omitempty,oneof=active inactive"`
	BatchID          *uint   `json:"batch_id"`
	ClearBatch       bool    `json:"clear_batch"`
	SchoolID         *uint   `json:"school_id"`
	EnrollmentNumber *string `json:"enrollment_number" validate:"omitempty,max=64"`
	GuardianName     *string `json:"guardian_name" validate:"omitempty,max=255"`
	Subject          *string `json:"subject" validate:"omitempty,max=128"`
	Expertise        *string `json:"expertise" validate:"omitempty,max=255"`
}

// MemberResponse serializes any member kind.
type MemberResponse struct {
	ID               uint      `json:"id"`
	Kind             string    `json:"kind"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	Status           string    `json:"status"`
	BatchID          *uint     `json:"batch_id"`
	BatchName        string    `json:"batch_name,omitempty"`
	SchoolID         *uint     `json:"school_id"`
	EnrollmentNumber string    `json:"enrollment_number,omitempty"`
	GuardianName     string    `json:"guardian_name,omitempty"`
	Subject          string    `json:"subject,omitempty"`
	Expertise        string    `json:"expertise,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MemberListResponse wraps a paginated member list.
type MemberListResponse struct {
	Items      []MemberResponse `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

func batchName(batch *models.Batch) string {
	if batch == nil {
		return ""
	}
	return batch.Name
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) MemberResponse {
	return MemberResponse{
		ID:               student.ProfileID,
		Kind:             models.KindStudents,
		Name:             student.Profile.Name,
		Email:            student.Profile.Email,
		Phone:            student.Profile.Phone,
		Status:           student.Profile.Status,
		BatchID:          student.BatchID,
		BatchName:        batchName(student.Batch),
		SchoolID:         student.SchoolID,
		EnrollmentNumber: student.EnrollmentNumber,
		GuardianName:     student.GuardianName,
		CreatedAt:        student.CreatedAt,
		UpdatedAt:        student.UpdatedAt,
	}
}

// NewTeacherResponse converts a teacher model into a DTO.
func NewTeacherResponse(teacher models.Teacher) MemberResponse {
	return MemberResponse{
		ID:        teacher.ProfileID,
		Kind:      models.KindTeachers,
		Name:      teacher.Profile.Name,
		Email:     teacher.Profile.Email,
		Phone:     teacher.Profile.Phone,
		Status:    teacher.Profile.Status,
		BatchID:   teacher.BatchID,
		BatchName: batchName(teacher.Batch),
		SchoolID:  teacher.SchoolID,
		Subject:   teacher.Subject,
		CreatedAt: teacher.CreatedAt,
		UpdatedAt: teacher.UpdatedAt,
	}
}

// NewSMEResponse converts an SME model into a DTO.
func NewSMEResponse(sme models.SME) MemberResponse {
	return MemberResponse{
		ID:        sme.ProfileID,
		Kind:      models.KindSMEs,
		Name:      sme.Profile.Name,
		Email:     sme.Profile.Email,
		Phone:     sme.Profile.Phone,
		Status:    sme.Profile.Status,
		BatchID:   sme.BatchID,
		BatchName: batchName(sme.Batch),
		SchoolID:  sme.SchoolID,
		Expertise: sme.Expertise,
		CreatedAt: sme.CreatedAt,
		UpdatedAt: sme.UpdatedAt,
	}
}

// StudentImportRow is one roster line of a student import.
type StudentImportRow struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	EnrollmentNumber string `json:"enrollment_number,omitempty"`
	GuardianName     string `json:"guardian_name,omitempty"`
	BatchID          *uint  `json:"batch_id,omitempty"`
	SchoolID         *uint  `json:"school_id,omitempty"`
}

// StudentImportRequest is the roster import payload.
type StudentImportRequest struct {
	Students []StudentImportRow `json:"students"`
}

// StudentImportResponse reports what an import changed.
type StudentImportResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}
