package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// SchoolHandler wires admin school endpoints.
type SchoolHandler struct {
	service service.SchoolService
	errors  errorResponder
}

// NewSchoolHandler constructs the handler.
func NewSchoolHandler(svc service.SchoolService, validation *utils.Validation, logger zerolog.Logger) *SchoolHandler {
	return &SchoolHandler{
		service: svc,
		errors:  errorResponder{validation: validation, logger: logger.With().Str("component", "school_handler").Logger()},
	}
}

// Register attaches school routes to the router group.
func (h *SchoolHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Put("/:id/logo", h.uploadLogo)
}

func (h *SchoolHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.List(requestContext(c), c.Query("search"), page, pageSize)
	if err != nil {
		return h.errors.respond(c, err, "failed to list schools")
	}
	return utils.OK(c, resp.Items, "schools retrieved", resp.Pagination)
}

func (h *SchoolHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	school, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.errors.respond(c, err, "failed to fetch school")
	}
	return utils.SendSuccess(c, "school retrieved", school)
}

func (h *SchoolHandler) create(c *fiber.Ctx) error {
	var payload dto.SchoolCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	school, err := h.service.Create(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to create school")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "school created", school)
}

func (h *SchoolHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.SchoolUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	school, err := h.service.Update(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to update school")
	}
	return utils.SendSuccess(c, "school updated", school)
}

func (h *SchoolHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(requestContext(c), activityActorFromContext(c), id); err != nil {
		return h.errors.respond(c, err, "failed to delete school")
	}
	return utils.SendSuccess(c, "school deleted", fiber.Map{"id": id})
}

func (h *SchoolHandler) uploadLogo(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	school, err := h.service.UploadLogo(requestContext(c), activityActorFromContext(c), id, file)
	if err != nil {
		return h.errors.respond(c, err, "failed to upload logo")
	}
	return utils.SendSuccess(c, "logo uploaded", school)
}
