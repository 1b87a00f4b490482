package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/report"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// ReportHandler serves monthly attendance reports as JSON or files.
type ReportHandler struct {
	service service.ReportService
	errors  errorResponder
}

// NewReportHandler constructs the handler.
func NewReportHandler(svc service.ReportService, validation *utils.Validation, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		errors:  errorResponder{validation: validation, logger: logger.With().Str("component", "report_handler").Logger()},
	}
}

// Register attaches report routes under /reports. archive controls the cloud archive endpoint.
func (h *ReportHandler) Register(router fiber.Router, archive bool) {
	for _, format := range []report.Format{report.FormatPDF, report.FormatXLSX, report.FormatCSV} {
		router.Get("/attendance."+string(format), h.render(format))
	}
	router.Get("/attendance", h.attendance)
	if archive {
		router.Post("/attendance/archive", h.archive)
	}
}

func reportRequest(c *fiber.Ctx) (dto.AttendanceReportRequest, error) {
	batchID, err := parseQueryUint(c, "batch_id")
	if err != nil {
		return dto.AttendanceReportRequest{}, err
	}
	kind := strings.TrimSpace(c.Query("kind"))
	if kind == "" {
		kind = models.KindStudents
	}
	return dto.AttendanceReportRequest{
		Kind:     kind,
		BatchID:  batchID,
		Month:    c.Query("month"),
		Download: c.QueryBool("download"),
	}, nil
}

func (h *ReportHandler) attendance(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	req, err := reportRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.Attendance(requestContext(c), session, req)
	if err != nil {
		return h.errors.respond(c, err, "failed to build report")
	}
	return utils.SendSuccess(c, "attendance report", resp)
}

func (h *ReportHandler) render(format report.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := sessionFromContext(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}
		req, err := reportRequest(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		rendered, err := h.service.Render(requestContext(c), session, req, format)
		if err != nil {
			return h.errors.respond(c, err, "failed to render report")
		}

		disposition := "inline"
		if req.Download || format != report.FormatPDF {
			disposition = "attachment"
		}
		c.Set(fiber.HeaderContentType, rendered.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, rendered.FileName))
		return c.Status(fiber.StatusOK).Send(rendered.Body)
	}
}

func (h *ReportHandler) archive(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	req, err := reportRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.Archive(requestContext(c), session, req)
	if err != nil {
		return h.errors.respond(c, err, "failed to archive report")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "report archived", resp)
}
