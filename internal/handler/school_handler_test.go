package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/service"
)

type schoolServiceStub struct {
	search   string
	page     int
	pageSize int
	logo     *multipart.FileHeader
	err      error
}

func (s *schoolServiceStub) List(_ context.Context, search string, page, pageSize int) (dto.SchoolListResponse, error) {
	s.search, s.page, s.pageSize = search, page, pageSize
	return dto.SchoolListResponse{Items: []dto.SchoolResponse{{ID: 1, Name: "North"}}, Pagination: dto.NewPaginationMeta(1, 20, 1)}, s.err
}

func (s *schoolServiceStub) Get(_ context.Context, id uint) (dto.SchoolResponse, error) {
	return dto.SchoolResponse{ID: id}, s.err
}

func (s *schoolServiceStub) Create(_ context.Context, _ service.ActivityActor, req dto.SchoolCreateRequest) (dto.SchoolResponse, error) {
	if s.err != nil {
		return dto.SchoolResponse{}, s.err
	}
	return dto.SchoolResponse{ID: 2, Name: req.Name}, nil
}

func (s *schoolServiceStub) Update(_ context.Context, _ service.ActivityActor, id uint, _ dto.SchoolUpdateRequest) (dto.SchoolResponse, error) {
	return dto.SchoolResponse{ID: id}, s.err
}

func (s *schoolServiceStub) Delete(context.Context, service.ActivityActor, uint) error {
	return s.err
}

func (s *schoolServiceStub) UploadLogo(_ context.Context, _ service.ActivityActor, id uint, file *multipart.FileHeader) (dto.SchoolResponse, error) {
	s.logo = file
	if s.err != nil {
		return dto.SchoolResponse{}, s.err
	}
	return dto.SchoolResponse{ID: id, LogoURL: "https://cdn.example.com/logos/" + file.Filename}, nil
}

type batchServiceStub struct {
	list dto.BatchListRequest
	err  error
}

func (s *batchServiceStub) List(_ context.Context, req dto.BatchListRequest) (dto.BatchListResponse, error) {
	s.list = req
	return dto.BatchListResponse{Pagination: dto.NewPaginationMeta(1, 20, 0)}, s.err
}

func (s *batchServiceStub) Get(_ context.Context, id uint) (dto.BatchResponse, error) {
	return dto.BatchResponse{ID: id}, s.err
}

func (s *batchServiceStub) Create(_ context.Context, _ service.ActivityActor, req dto.BatchCreateRequest) (dto.BatchResponse, error) {
	if s.err != nil {
		return dto.BatchResponse{}, s.err
	}
	return dto.BatchResponse{ID: 3, Name: req.Name}, nil
}

func (s *batchServiceStub) Update(_ context.Context, _ service.ActivityActor, id uint, _ dto.BatchUpdateRequest) (dto.BatchResponse, error) {
	return dto.BatchResponse{ID: id}, s.err
}

func (s *batchServiceStub) Delete(context.Context, service.ActivityActor, uint) error {
	return s.err
}

func logoRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "crest.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPut, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSchoolHandlerList(t *testing.T) {
	svc := &schoolServiceStub{}
	app := newSessionApp(adminSession)
	handler.NewSchoolHandler(svc, testValidation(), testLogger()).Register(app.Group("/schools"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/schools?search=north&page=2&page_size=500", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "north", svc.search)
	require.Equal(t, 2, svc.page)
	require.Equal(t, 500, svc.pageSize)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/schools?page=two", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSchoolHandlerCreateConflict(t *testing.T) {
	app := newSessionApp(adminSession)
	handler.NewSchoolHandler(&schoolServiceStub{err: service.ErrNameTaken}, testValidation(), testLogger()).Register(app.Group("/schools"))

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/schools", dto.SchoolCreateRequest{Name: "North"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestSchoolHandlerUploadLogo(t *testing.T) {
	svc := &schoolServiceStub{}
	app := newSessionApp(adminSession)
	handler.NewSchoolHandler(svc, testValidation(), testLogger()).Register(app.Group("/schools"))

	resp, err := app.Test(logoRequest(t, "/schools/1/logo"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.logo)
	require.Equal(t, "crest.png", svc.logo.Filename)

	resp, err = app.Test(httptest.NewRequest(http.MethodPut, "/schools/1/logo", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSchoolHandlerUploadErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{err: service.ErrUploadTooLarge, status: fiber.StatusRequestEntityTooLarge},
		{err: service.ErrUploadTypeNotAllowed, status: fiber.StatusUnsupportedMediaType},
		{err: service.ErrStorageUnavailable, status: fiber.StatusServiceUnavailable},
		{err: service.ErrSchoolNotFound, status: fiber.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			app := newSessionApp(adminSession)
			handler.NewSchoolHandler(&schoolServiceStub{err: tc.err}, testValidation(), testLogger()).Register(app.Group("/schools"))

			resp, err := app.Test(logoRequest(t, "/schools/1/logo"))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestBatchHandlerListAndWindow(t *testing.T) {
	svc := &batchServiceStub{}
	app := newSessionApp(adminSession)
	handler.NewBatchHandler(svc, testValidation(), testLogger()).Register(app.Group("/batches"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/batches?school_id=4&search=alpha", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(4), *svc.list.SchoolID)
	require.Equal(t, "alpha", svc.list.Search)

	app = newSessionApp(adminSession)
	handler.NewBatchHandler(&batchServiceStub{err: service.ErrInvalidBatchWindow}, testValidation(), testLogger()).Register(app.Group("/batches"))
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/batches", dto.BatchCreateRequest{Name: "2024-Alpha", StartDate: "2024-02-01", EndDate: "2024-01-01"}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}
