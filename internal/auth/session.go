// Package auth holds the per-request session, password hashing and token handling.
package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRole is returned by a RoleResolver when the user has no dashboard role.
var ErrNoRole = errors.New("no role assigned")

// Session is the resolved identity of the caller for one request.
type Session struct {
	UserID   uint   `json:"user_id"`
	Role     string `json:"role"`
	SchoolID *uint  `json:"school_id,omitempty"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
}

// HasRole reports whether the session role is one of roles.
func (s Session) HasRole(roles ...string) bool {
	for _, role := range roles {
		if strings.EqualFold(strings.TrimSpace(role), s.Role) {
			return true
		}
	}
	return false
}

// RoleResolver maps an authenticated user id to its session.
type RoleResolver interface {
	Resolve(ctx context.Context, userID uint) (Session, error)
}

type sessionKey struct{}

// WithSession stores the session in ctx.
func WithSession(ctx context.Context, session Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session stored by WithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	session, ok := ctx.Value(sessionKey{}).(Session)
	return session, ok
}
