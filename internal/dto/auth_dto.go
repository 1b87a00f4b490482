package dto

import (
	"time"

	"github.com/noah-isme/edudash-api/internal/auth"
)

// LoginRequest is the email/password sign-in payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token and the resolved session.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	Session     auth.Session `json:"session"`
}

// AccountCreateRequest lets an admin create a sign-in account with a role.
type AccountCreateRequest struct {
	Name     string `json:"name" validate:"notblank,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin teacher student sme school_admin"`
	SchoolID *uint  `json:"school_id" validate:"required_if=Role school_admin"`
}

// AccountResponse describes a created account.
type AccountResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	SchoolID *uint  `json:"school_id,omitempty"`
}
