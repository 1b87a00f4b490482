package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// OverviewHandler serves the admin dashboard counters.
type OverviewHandler struct {
	service service.OverviewService
	errors  errorResponder
}

// NewOverviewHandler constructs the handler.
func NewOverviewHandler(svc service.OverviewService, logger zerolog.Logger) *OverviewHandler {
	return &OverviewHandler{
		service: svc,
		errors:  errorResponder{logger: logger.With().Str("component", "overview_handler").Logger()},
	}
}

// Overview handles GET /admin/overview.
func (h *OverviewHandler) Overview(c *fiber.Ctx) error {
	resp, err := h.service.Overview(requestContext(c))
	if err != nil {
		return h.errors.respond(c, err, "failed to load overview")
	}
	return utils.SendSuccess(c, "overview", resp)
}
