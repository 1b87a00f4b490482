package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// ResolveSession looks up the caller's role once per request and exposes the
// resulting auth.Session through the user context and fiber locals.
func ResolveSession(resolver auth.RoleResolver, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "session_middleware").Logger()

	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(uint)
		if !ok || userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		session, err := resolver.Resolve(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, auth.ErrNoRole) {
				return utils.SendError(c, fiber.StatusForbidden, "no role assigned to this account")
			}
			log.Error().Err(err).Uint("user_id", userID).Str("correlation_id", GetCorrelationID(c)).Msg("failed to resolve session")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve session")
		}

		c.Locals("user_role", session.Role)
		c.Locals("session", session)
		c.SetUserContext(auth.WithSession(c.UserContext(), session))

		return c.Next()
	}
}

// CurrentSession returns the session resolved for the request.
func CurrentSession(c *fiber.Ctx) (auth.Session, bool) {
	if c == nil {
		return auth.Session{}, false
	}
	if session, ok := c.Locals("session").(auth.Session); ok {
		return session, true
	}
	return auth.SessionFromContext(c.UserContext())
}
