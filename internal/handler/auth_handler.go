package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// AuthHandler serves sign-in, the current session and admin account creation.
type AuthHandler struct {
	service service.AuthService
	errors  errorResponder
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc service.AuthService, validation *utils.Validation, logger zerolog.Logger) *AuthHandler {
	log := logger.With().Str("component", "auth_handler").Logger()
	return &AuthHandler{
		service: svc,
		errors:  errorResponder{validation: validation, logger: log},
		logger:  log,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to sign in")
	}

	return utils.SendSuccess(c, "signed in", resp)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	return utils.SendSuccess(c, "session", session)
}

// CreateAccount handles POST /admin/accounts.
func (h *AuthHandler) CreateAccount(c *fiber.Ctx) error {
	var payload dto.AccountCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	account, err := h.service.CreateAccount(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to create account")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "account created", account)
}
