package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/service"
)

type sessionServiceStub struct {
	caller  auth.Session
	list    dto.SessionListRequest
	status  dto.SessionStatusRequest
	created dto.SessionCreateRequest
	err     error
}

func (s *sessionServiceStub) List(_ context.Context, caller auth.Session, req dto.SessionListRequest) (dto.SessionListResponse, error) {
	s.caller, s.list = caller, req
	if s.err != nil {
		return dto.SessionListResponse{}, s.err
	}
	return dto.SessionListResponse{
		Items:      []dto.SessionResponse{{ID: 3, Course: "Algebra", Status: "scheduled"}},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}, nil
}

func (s *sessionServiceStub) Get(_ context.Context, id uint) (dto.SessionResponse, error) {
	if s.err != nil {
		return dto.SessionResponse{}, s.err
	}
	return dto.SessionResponse{ID: id}, nil
}

func (s *sessionServiceStub) Create(_ context.Context, _ service.ActivityActor, req dto.SessionCreateRequest) (dto.SessionResponse, error) {
	s.created = req
	if s.err != nil {
		return dto.SessionResponse{}, s.err
	}
	return dto.SessionResponse{ID: 5, Course: req.Course}, nil
}

func (s *sessionServiceStub) Update(_ context.Context, _ service.ActivityActor, id uint, _ dto.SessionUpdateRequest) (dto.SessionResponse, error) {
	return dto.SessionResponse{ID: id}, s.err
}

func (s *sessionServiceStub) Delete(context.Context, service.ActivityActor, uint) error {
	return s.err
}

func (s *sessionServiceStub) ChangeStatus(_ context.Context, caller auth.Session, id uint, req dto.SessionStatusRequest) (dto.SessionResponse, error) {
	s.caller, s.status = caller, req
	if s.err != nil {
		return dto.SessionResponse{}, s.err
	}
	return dto.SessionResponse{ID: id, Status: req.Status}, nil
}

func TestSessionHandlerListParsesFilters(t *testing.T) {
	location := time.FixedZone("WIB", 7*3600)
	svc := &sessionServiceStub{}
	app := newSessionApp(teacherSession)
	handler.NewSessionHandler(svc, testValidation(), location, testLogger()).RegisterTeacher(app.Group("/sessions"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions?batch_id=2&status=scheduled&from=2024-01-08&to=2024-01-14", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, teacherSession.UserID, svc.caller.UserID)
	require.Equal(t, uint(2), *svc.list.BatchID)
	require.Nil(t, svc.list.TeacherID)
	require.Equal(t, "scheduled", svc.list.Status)
	require.True(t, svc.list.From.Equal(time.Date(2024, 1, 8, 0, 0, 0, 0, location)))
	require.True(t, svc.list.To.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, location)))

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Contains(t, string(body.Meta), `"total_items":1`)
}

func TestSessionHandlerListRejectsBadBounds(t *testing.T) {
	app := newSessionApp(adminSession)
	handler.NewSessionHandler(&sessionServiceStub{}, testValidation(), nil, testLogger()).Register(app.Group("/sessions"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sessions?from=yesterday", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSessionHandlerChangeStatus(t *testing.T) {
	svc := &sessionServiceStub{}
	app := newSessionApp(teacherSession)
	handler.NewSessionHandler(svc, testValidation(), nil, testLogger()).RegisterTeacher(app.Group("/sessions"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/3/status", dto.SessionStatusRequest{Status: "ongoing"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "ongoing", svc.status.Status)
	require.Equal(t, "teacher", svc.caller.Role)
}

func TestSessionHandlerStatusErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "transition", err: service.ErrInvalidTransition, status: fiber.StatusUnprocessableEntity},
		{name: "scope", err: service.ErrOutOfScope, status: fiber.StatusForbidden},
		{name: "missing", err: service.ErrSessionNotFound, status: fiber.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSessionApp(teacherSession)
			handler.NewSessionHandler(&sessionServiceStub{err: tc.err}, testValidation(), nil, testLogger()).RegisterTeacher(app.Group("/sessions"))

			resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions/3/status", dto.SessionStatusRequest{Status: "completed"}))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestSessionHandlerCreate(t *testing.T) {
	svc := &sessionServiceStub{}
	app := newSessionApp(adminSession)
	handler.NewSessionHandler(svc, testValidation(), nil, testLogger()).Register(app.Group("/sessions"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/sessions", dto.SessionCreateRequest{
		Course:    "Algebra",
		TeacherID: 7,
		BatchID:   2,
		StartsAt:  "2024-01-10T09:00:00+07:00",
		EndsAt:    "2024-01-10T10:30:00+07:00",
	}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "Algebra", svc.created.Course)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/sessions/0", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
