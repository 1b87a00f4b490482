package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// MemberHandler serves the student, teacher and SME directories.
type MemberHandler struct {
	service service.MemberService
	imports service.ImportService
	errors  errorResponder
}

// NewMemberHandler constructs the handler.
func NewMemberHandler(svc service.MemberService, imports service.ImportService, validation *utils.Validation, logger zerolog.Logger) *MemberHandler {
	return &MemberHandler{
		service: svc,
		imports: imports,
		errors:  errorResponder{validation: validation, logger: logger.With().Str("component", "member_handler").Logger()},
	}
}

// Register attaches the CRUD routes of one member kind. The roster import only exists for students.
func (h *MemberHandler) Register(router fiber.Router, kind string) {
	if kind == models.KindStudents && h.imports != nil {
		router.Post("/import", h.importStudents)
	}
	router.Get("", h.list(kind))
	router.Post("", h.create(kind))
	router.Get("/:id", h.get(kind))
	router.Patch("/:id", h.update(kind))
	router.Delete("/:id", h.delete(kind))
}

// RegisterSchoolStudents attaches the read-only student list of the caller's school.
func (h *MemberHandler) RegisterSchoolStudents(router fiber.Router) {
	router.Get("", h.schoolStudents)
}

func (h *MemberHandler) listRequest(c *fiber.Ctx) (dto.MemberListRequest, error) {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return dto.MemberListRequest{}, err
	}
	batchID, err := parseQueryUint(c, "batch_id")
	if err != nil {
		return dto.MemberListRequest{}, err
	}
	schoolID, err := parseQueryUint(c, "school_id")
	if err != nil {
		return dto.MemberListRequest{}, err
	}
	return dto.MemberListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		BatchID:  batchID,
		SchoolID: schoolID,
	}, nil
}

func (h *MemberHandler) list(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := h.listRequest(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		resp, err := h.service.List(requestContext(c), kind, req)
		if err != nil {
			return h.errors.respond(c, err, "failed to list "+kind)
		}
		return utils.OK(c, resp.Items, kind+" retrieved", resp.Pagination)
	}
}

func (h *MemberHandler) schoolStudents(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	if session.SchoolID == nil {
		return h.errors.respond(c, service.ErrOutOfScope, "failed to list students")
	}

	req, err := h.listRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	req.SchoolID = session.SchoolID

	resp, err := h.service.List(requestContext(c), models.KindStudents, req)
	if err != nil {
		return h.errors.respond(c, err, "failed to list students")
	}
	return utils.OK(c, resp.Items, "students retrieved", resp.Pagination)
}

func (h *MemberHandler) get(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
		}

		member, err := h.service.Get(requestContext(c), kind, id)
		if err != nil {
			return h.errors.respond(c, err, "failed to fetch member")
		}
		return utils.SendSuccess(c, "member retrieved", member)
	}
}

func (h *MemberHandler) create(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload dto.MemberCreateRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}

		member, err := h.service.Create(requestContext(c), activityActorFromContext(c), kind, payload)
		if err != nil {
			return h.errors.respond(c, err, "failed to create member")
		}
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "member created", member)
	}
}

func (h *MemberHandler) update(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
		}

		var payload dto.MemberUpdateRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}

		member, err := h.service.Update(requestContext(c), activityActorFromContext(c), kind, id, payload)
		if err != nil {
			return h.errors.respond(c, err, "failed to update member")
		}
		return utils.SendSuccess(c, "member updated", member)
	}
}

func (h *MemberHandler) delete(kind string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
		}

		if err := h.service.Delete(requestContext(c), activityActorFromContext(c), kind, id); err != nil {
			return h.errors.respond(c, err, "failed to delete member")
		}
		return utils.SendSuccess(c, "member deleted", fiber.Map{"id": id})
	}
}

func (h *MemberHandler) importStudents(c *fiber.Ctx) error {
	resp, err := h.imports.ImportStudents(requestContext(c), activityActorFromContext(c), c.Body())
	if err != nil {
		return h.errors.respond(c, err, "failed to import students")
	}
	return utils.SendSuccess(c, "students imported", resp)
}
