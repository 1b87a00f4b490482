package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/middleware"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

// AttendanceHandler serves the attendance grid, its drafts, personal history and the live channel.
type AttendanceHandler struct {
	service service.AttendanceService
	live    service.LiveGridService
	errors  errorResponder
	logger  zerolog.Logger
}

// NewAttendanceHandler constructs the handler. live may be nil when no realtime channel runs.
func NewAttendanceHandler(svc service.AttendanceService, live service.LiveGridService, validation *utils.Validation, logger zerolog.Logger) *AttendanceHandler {
	log := logger.With().Str("component", "attendance_handler").Logger()
	return &AttendanceHandler{
		service: svc,
		live:    live,
		errors:  errorResponder{validation: validation, logger: log},
		logger:  log,
	}
}

// RegisterGrid attaches the editable grid routes under /attendance.
func (h *AttendanceHandler) RegisterGrid(router fiber.Router) {
	router.Get("/:kind/grid", h.grid)
	router.Patch("/:kind/grid/draft", h.draft)
	router.Delete("/:kind/grid/draft", h.discardDraft)
	router.Put("/:kind/grid", h.save)
}

// RegisterHistory attaches the personal attendance history of students and SMEs.
func (h *AttendanceHandler) RegisterHistory(router fiber.Router) {
	router.Get("/attendance", h.myAttendance)
}

// RegisterLive binds the websocket upgrade for grid save notifications.
func (h *AttendanceHandler) RegisterLive(router fiber.Router, guards ...fiber.Handler) {
	upgrade := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	handlers := append([]fiber.Handler{}, guards...)
	handlers = append(handlers, upgrade, websocket.New(h.handleLive))
	router.Get("/live", handlers...)
}

func gridRequest(c *fiber.Ctx) (dto.AttendanceGridRequest, error) {
	batchID, err := parseQueryUint(c, "batch_id")
	if err != nil {
		return dto.AttendanceGridRequest{}, err
	}
	return dto.AttendanceGridRequest{
		Kind:    strings.TrimSpace(c.Params("kind")),
		BatchID: batchID,
		View:    c.Query("view"),
		Date:    c.Query("date"),
		Mode:    c.Query("mode"),
	}, nil
}

func (h *AttendanceHandler) grid(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	req, err := gridRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grid, err := h.service.Grid(requestContext(c), session, req)
	if err != nil {
		return h.errors.respond(c, err, "failed to load attendance")
	}
	return utils.SendSuccess(c, "attendance grid", grid)
}

func (h *AttendanceHandler) draft(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	req, err := gridRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AttendanceDraftRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	resp, err := h.service.Draft(requestContext(c), session, req, payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to update draft")
	}
	return utils.SendSuccess(c, "draft updated", resp)
}

func (h *AttendanceHandler) discardDraft(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	req, err := gridRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	grid, err := h.service.DiscardDraft(requestContext(c), session, req)
	if err != nil {
		return h.errors.respond(c, err, "failed to discard draft")
	}
	return utils.SendSuccess(c, "draft discarded", grid)
}

func (h *AttendanceHandler) save(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}
	req, err := gridRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AttendanceSaveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	resp, err := h.service.Save(requestContext(c), session, req, payload)
	if err != nil {
		return h.errors.respond(c, err, "failed to save attendance")
	}
	return utils.SendSuccess(c, "attendance saved", resp)
}

func (h *AttendanceHandler) myAttendance(c *fiber.Ctx) error {
	session, ok := sessionFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	resp, err := h.service.MyAttendance(requestContext(c), session, c.Query("month"))
	if err != nil {
		return h.errors.respond(c, err, "failed to load attendance")
	}
	return utils.SendSuccess(c, "attendance history", resp)
}

func (h *AttendanceHandler) handleLive(conn *websocket.Conn) {
	session, _ := conn.Locals("session").(auth.Session)
	if session.UserID == 0 || h.live == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session missing"))
		_ = conn.Close()
		return
	}

	kind := strings.TrimSpace(conn.Query("kind", models.KindStudents))
	if kind != models.KindStudents && kind != models.KindSMEs {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "unknown kind"))
		_ = conn.Close()
		return
	}

	var batchID *uint
	if raw := strings.TrimSpace(conn.Query("batch_id")); raw != "" {
		id, err := parsePositiveUint(raw)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseUnsupportedData, "invalid batch_id"))
			_ = conn.Close()
			return
		}
		batchID = &id
	}

	ctx, ok := conn.Locals("request_ctx").(context.Context)
	if !ok {
		ctx = context.Background()
	}
	if err := h.service.AuthorizeScope(ctx, session, kind, batchID); err != nil {
		code := websocket.CloseUnsupportedData
		if errors.Is(err, service.ErrOutOfScope) || errors.Is(err, service.ErrBatchNotFound) {
			code = websocket.ClosePolicyViolation
		}
		h.logger.Warn().Err(err).Uint("user_id", session.UserID).Str("kind", kind).Msg("live grid scope rejected")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, err.Error()))
		_ = conn.Close()
		return
	}
	correlation := middleware.CorrelationIDFromContext(ctx)

	room := service.LiveRoom(kind, batchID)
	h.logger.Info().Uint("user_id", session.UserID).Str("room", room).Msg("live grid connected")
	h.live.ServeConnection(conn, service.LiveConnectionOptions{
		UserID:        session.UserID,
		Role:          session.Role,
		Room:          room,
		CorrelationID: correlation,
	})
	h.logger.Info().Uint("user_id", session.UserID).Str("room", room).Msg("live grid disconnected")
}
