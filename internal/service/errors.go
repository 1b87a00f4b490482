package service

import (
	"errors"
	"strings"
)

var (
	// ErrSchoolNotFound indicates the school does not exist.
	ErrSchoolNotFound = errors.New("school not found")
	// ErrBatchNotFound indicates the batch does not exist.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrMemberNotFound indicates the student, teacher or SME does not exist.
	ErrMemberNotFound = errors.New("member not found")
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotificationNotFound indicates the notification does not exist for the user.
	ErrNotificationNotFound = errors.New("notification not found")
	// ErrEmailTaken indicates another profile already uses the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNameTaken indicates another school or batch already uses the name.
	ErrNameTaken = errors.New("name already in use")
	// ErrInvalidKind indicates an unknown member kind in the route.
	ErrInvalidKind = errors.New("unknown member kind")
	// ErrInvalidBatchWindow indicates a batch whose end precedes its start.
	ErrInvalidBatchWindow = errors.New("batch end date must not be before start date")
	// ErrInvalidSessionWindow indicates a session that ends before it starts.
	ErrInvalidSessionWindow = errors.New("session must end after it starts")
	// ErrInvalidTransition indicates a session status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid session status transition")
	// ErrOutOfScope indicates the caller may not access the requested batch, school or session.
	ErrOutOfScope = errors.New("resource outside of your scope")
	// ErrInvalidInput indicates a malformed query value such as a date or month.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable indicates file storage is not configured.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

// ErrAccountInactive indicates the profile exists but is not active.
var ErrAccountInactive = errors.New("account is inactive")
