package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/service"
)

type memberServiceStub struct {
	kind    string
	list    dto.MemberListRequest
	created dto.MemberCreateRequest
	err     error
}

func (s *memberServiceStub) List(_ context.Context, kind string, req dto.MemberListRequest) (dto.MemberListResponse, error) {
	s.kind, s.list = kind, req
	if s.err != nil {
		return dto.MemberListResponse{}, s.err
	}
	return dto.MemberListResponse{Items: []dto.MemberResponse{{ID: 1, Kind: kind, Name: "Alice"}}, Pagination: dto.NewPaginationMeta(1, 20, 1)}, nil
}

func (s *memberServiceStub) Get(_ context.Context, kind string, id uint) (dto.MemberResponse, error) {
	s.kind = kind
	if s.err != nil {
		return dto.MemberResponse{}, s.err
	}
	return dto.MemberResponse{ID: id, Kind: kind}, nil
}

func (s *memberServiceStub) Create(_ context.Context, _ service.ActivityActor, kind string, req dto.MemberCreateRequest) (dto.MemberResponse, error) {
	s.kind, s.created = kind, req
	if s.err != nil {
		return dto.MemberResponse{}, s.err
	}
	return dto.MemberResponse{ID: 9, Kind: kind, Name: req.Name}, nil
}

func (s *memberServiceStub) Update(_ context.Context, _ service.ActivityActor, kind string, id uint, _ dto.MemberUpdateRequest) (dto.MemberResponse, error) {
	s.kind = kind
	return dto.MemberResponse{ID: id, Kind: kind}, s.err
}

func (s *memberServiceStub) Delete(_ context.Context, _ service.ActivityActor, kind string, _ uint) error {
	s.kind = kind
	return s.err
}

type importServiceStub struct {
	payload []byte
	err     error
}

func (s *importServiceStub) ImportStudents(_ context.Context, _ service.ActivityActor, payload []byte) (dto.StudentImportResponse, error) {
	s.payload = payload
	if s.err != nil {
		return dto.StudentImportResponse{}, s.err
	}
	return dto.StudentImportResponse{Created: 2}, nil
}

func newMemberApp(session auth.Session, svc *memberServiceStub, imports *importServiceStub) *fiber.App {
	app := newSessionApp(session)
	h := handler.NewMemberHandler(svc, imports, testValidation(), testLogger())
	for _, kind := range []string{"students", "teachers", "smes"} {
		h.Register(app.Group("/"+kind), kind)
	}
	h.RegisterSchoolStudents(app.Group("/school/students"))
	return app
}

func TestMemberHandlerRoutesByKind(t *testing.T) {
	svc := &memberServiceStub{}
	app := newMemberApp(adminSession, svc, &importServiceStub{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/smes?search=ali&batch_id=3&status=active", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "smes", svc.kind)
	require.Equal(t, "ali", svc.list.Search)
	require.Equal(t, "active", svc.list.Status)
	require.Equal(t, uint(3), *svc.list.BatchID)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/teachers", dto.MemberCreateRequest{Name: "Tom", Email: "tom@example.com"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "teachers", svc.kind)
	require.Equal(t, "tom@example.com", svc.created.Email)
}

func TestMemberHandlerErrors(t *testing.T) {
	app := newMemberApp(adminSession, &memberServiceStub{err: service.ErrMemberNotFound}, &importServiceStub{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/students/44", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	app = newMemberApp(adminSession, &memberServiceStub{err: service.ErrEmailTaken}, &importServiceStub{})
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/students", dto.MemberCreateRequest{Name: "Alice", Email: "alice@example.com"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestMemberHandlerImportForwardsRawBody(t *testing.T) {
	imports := &importServiceStub{}
	app := newMemberApp(adminSession, &memberServiceStub{}, imports)

	payload := `{"students":[{"name":"Alice","email":"alice@example.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/students/import", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.JSONEq(t, payload, string(imports.payload))
}

func TestMemberHandlerImportValidationDetails(t *testing.T) {
	imports := &importServiceStub{err: &service.ImportValidationError{Details: map[string]string{"/students/0/email": "is required"}}}
	app := newMemberApp(adminSession, &memberServiceStub{}, imports)

	req := httptest.NewRequest(http.MethodPost, "/students/import", strings.NewReader(`{"students":[{}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "is required", body.Details["/students/0/email"])
}

func TestMemberHandlerImportOnlyForStudents(t *testing.T) {
	app := newMemberApp(adminSession, &memberServiceStub{}, &importServiceStub{})
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/teachers/import", map[string]string{}))
	require.NoError(t, err)
	require.NotEqual(t, fiber.StatusOK, resp.StatusCode)
}

func TestMemberHandlerSchoolStudentsScoped(t *testing.T) {
	schoolID := uint(5)
	svc := &memberServiceStub{}
	schoolAdmin := auth.Session{UserID: 30, Role: "school_admin", SchoolID: &schoolID, Active: true}
	app := newMemberApp(schoolAdmin, svc, &importServiceStub{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/school/students?school_id=99", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "students", svc.kind)
	require.Equal(t, uint(5), *svc.list.SchoolID)

	app = newMemberApp(auth.Session{UserID: 31, Role: "school_admin", Active: true}, &memberServiceStub{}, &importServiceStub{})
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/school/students", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
