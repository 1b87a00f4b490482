package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/middleware"
	"github.com/noah-isme/edudash-api/internal/report"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// parseQueryUint returns nil for an absent value.
func parseQueryUint(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid " + key)
	}
	id := uint(parsed)
	return &id, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	return parsePositiveUint(c.Params(name))
}

func parsePositiveUint(value string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func sessionFromContext(c *fiber.Ctx) (auth.Session, bool) {
	return middleware.CurrentSession(c)
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	session, _ := sessionFromContext(c)
	return service.ActorFromSession(session)
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// errorResponder turns service errors into the response envelope.
type errorResponder struct {
	validation *utils.Validation
	logger     zerolog.Logger
}

// respond maps known errors to statuses and logs everything else as a 500 with action as the message.
func (r errorResponder) respond(c *fiber.Ctx, err error, action string) error {
	var importErr *service.ImportValidationError
	switch {
	case isValidationError(err):
		var details map[string]string
		if r.validation != nil {
			details = r.validation.Details(err)
		}
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	case errors.As(err, &importErr):
		return utils.Fail(c, fiber.StatusBadRequest, "roster failed validation", importErr.Details)
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, report.ErrUnsupportedFormat):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, auth.ErrNoRole),
		errors.Is(err, service.ErrOutOfScope):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSchoolNotFound),
		errors.Is(err, service.ErrBatchNotFound),
		errors.Is(err, service.ErrMemberNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrNameTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidBatchWindow),
		errors.Is(err, service.ErrInvalidSessionWindow):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		requestLogger(r.logger, c).Error().Err(err).Msg(action)
		return utils.SendError(c, fiber.StatusInternalServerError, action)
	}
}

// pageParams reads page and page_size; the services clamp them.
func pageParams(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, errors.New("invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return 0, 0, errors.New("invalid page size")
	}
	return page, pageSize, nil
}
