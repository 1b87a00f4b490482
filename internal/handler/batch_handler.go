package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// BatchHandler wires admin batch endpoints.
type BatchHandler struct {
	service service.BatchService
	errors  errorResponder
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(svc service.BatchService, validation *utils.Validation, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		service: svc,
		errors:  errorResponder{validation: validation, logger: logger.With().Str("component", "batch_handler").Logger()},
	}
}

// Register attaches batch routes to the router group.
func (h *BatchHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *BatchHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := pageParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	schoolID, err := parseQueryUint(c, "school_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.List(requestContext(c), dto.BatchListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		SchoolID: schoolID,
	})
	if err != nil {
		return h.errors.respond(c, err, "failed to list batches")
	}
	return utils.OK(c, resp.Items, "batches retrieved", resp.Pagination)
}

func (h *BatchHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	batch, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.errors.respond(c, err, "failed to fetch batch")
	}
	return utils.SendSuccess(c, "batch retrieved", batch)
}

func (h *BatchHandler) create(c *fiber.Ctx) error {
	var payload dto.BatchCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	batch, err := h.service.Create(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to create batch")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "batch created", batch)
}

func (h *BatchHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.BatchUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	batch, err := h.service.Update(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to update batch")
	}
	return utils.SendSuccess(c, "batch updated", batch)
}

func (h *BatchHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	if err := h.service.Delete(requestContext(c), activityActorFromContext(c), id); err != nil {
		return h.errors.respond(c, err, "failed to delete batch")
	}
	return utils.SendSuccess(c, "batch deleted", fiber.Map{"id": id})
}
