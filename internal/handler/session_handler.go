package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// SessionHandler serves class sessions for admins and the scoped role views.
type SessionHandler struct {
	service  service.SessionService
	errors   errorResponder
	location *time.Location
}

// NewSessionHandler constructs the handler. Bare dates in from/to are read in location.
func NewSessionHandler(svc service.SessionService, validation *utils.Validation, location *time.Location, logger zerolog.Logger) *SessionHandler {
	if location == nil {
		location = time.UTC
	}
	return &SessionHandler{
		service:  svc,
		errors:   errorResponder{validation: validation, logger: logger.With().Str("component", "session_handler").Logger()},
		location: location,
	}
}

// Register attaches the admin session routes.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/status", h.changeStatus)
}

// RegisterTeacher attaches the teacher view: own sessions and status changes.
func (h *SessionHandler) RegisterTeacher(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/status", h.changeStatus)
}

// RegisterReadOnly attaches the session list for students and SMEs.
func (h *SessionHandler) RegisterReadOnly(router fiber.Router) {
	router.Get("", h.list)
}

func (h *SessionHandler) list(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	batchID, err := parseQueryUint(c, "batch_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	teacherID, err := parseQueryUint(c, "teacher_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	from, err := h.parseBound(c.Query("from"), false)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid from")
	}
	to, err := h.parseBound(c.Query("to"), true)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid to")
	}

	resp, err := h.service.List(requestContext(c), session, dto.SessionListRequest{
		Page:      page,
		PageSize:  pageSize,
		BatchID:   batchID,
		TeacherID: teacherID,
		Status:    c.Query("status"),
		From:      from,
		To:        to,
	})
	if err != nil {
		return h.errors.respond(c, err, "failed to list sessions")
	}
	return utils.OK(c, resp.Items, "sessions retrieved", resp.Pagination)
}

// parseBound accepts RFC3339 or YYYY-MM-DD. A bare upper date covers that whole day.
func (h *SessionHandler) parseBound(raw string, upper bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, h.location)
	if err != nil {
		return nil, err
	}
	if upper {
		parsed = parsed.AddDate(0, 0, 1)
	}
	return &parsed, nil
}

func (h *SessionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	session, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.errors.respond(c, err, "failed to fetch session")
	}
	return utils.SendSuccess(c, "session retrieved", session)
}

func (h *SessionHandler) create(c *fiber.Ctx) error {
	var payload dto.SessionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := h.service.Create(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to create session")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "session created", session)
}

func (h *SessionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SessionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := h.service.Update(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to update session")
	}
	return utils.SendSuccess(c, "session updated", session)
}

func (h *SessionHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(requestContext(c), activityActorFromContext(c), id); err != nil {
		return h.errors.respond(c, err, "failed to delete session")
	}
	return utils.SendSuccess(c, "session deleted", fiber.Map{"id": id})
}

func (h *SessionHandler) changeStatus(c *fiber.Ctx) error {
	current, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SessionStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	session, err := h.service.ChangeStatus(requestContext(c), current, id, payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to change session status")
	}
	return utils.SendSuccess(c, "session status updated", session)
}
