package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/service"
)

type notificationServiceStub struct {
	userID    uint
	limit     int
	offset    int
	published dto.NotificationCreateRequest
	err       error
}

func (s *notificationServiceStub) Publish(_ context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	s.published = payload
	if s.err != nil {
		return dto.NotificationResponse{}, s.err
	}
	return dto.NotificationResponse{ID: 1, UserID: payload.UserID, Message: payload.Message}, nil
}

func (s *notificationServiceStub) List(_ context.Context, userID uint, limit, offset int) ([]dto.NotificationResponse, error) {
	s.userID, s.limit, s.offset = userID, limit, offset
	return []dto.NotificationResponse{{ID: 1, UserID: userID, Message: "hello"}}, s.err
}

func (s *notificationServiceStub) MarkRead(_ context.Context, id uint, userID uint) (dto.NotificationResponse, error) {
	s.userID = userID
	if s.err != nil {
		return dto.NotificationResponse{}, s.err
	}
	return dto.NotificationResponse{ID: id, UserID: userID, Read: true}, nil
}

func (s *notificationServiceStub) Subscribe(uint) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse)
	close(ch)
	return ch, func() {}
}

func (s *notificationServiceStub) Start(context.Context) {}

func newNotificationApp(svc *notificationServiceStub) *fiber.App {
	app := newSessionApp(teacherSession)
	h := handler.NewNotificationHandler(svc, testValidation(), testLogger(), time.Second)
	h.Register(app.Group("/notifications"))
	h.RegisterAdmin(app.Group("/admin/notifications"))
	return app
}

func TestNotificationHandlerListUsesSessionUser(t *testing.T) {
	svc := &notificationServiceStub{}
	app := newNotificationApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/notifications?limit=5&offset=10", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, teacherSession.UserID, svc.userID)
	require.Equal(t, 5, svc.limit)
	require.Equal(t, 10, svc.offset)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/notifications?limit=x", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	svc := &notificationServiceStub{}
	app := newNotificationApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodPatch, "/notifications/4/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	app = newNotificationApp(&notificationServiceStub{err: service.ErrNotificationNotFound})
	resp, err = app.Test(httptest.NewRequest(http.MethodPatch, "/notifications/4/read", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationHandlerPublish(t *testing.T) {
	svc := &notificationServiceStub{}
	app := newNotificationApp(svc)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/admin/notifications", dto.NotificationCreateRequest{UserID: 7, Type: "info", Message: "Room changed"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "Room changed", svc.published.Message)

	app = newNotificationApp(&notificationServiceStub{err: service.ErrMemberNotFound})
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/admin/notifications", dto.NotificationCreateRequest{UserID: 99, Message: "x"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestNotificationHandlerStreamHeaders(t *testing.T) {
	app := newNotificationApp(&notificationServiceStub{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/notifications/stream", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
}
