package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/config"
	"github.com/noah-isme/edudash-api/internal/database"
	"github.com/noah-isme/edudash-api/internal/dto"
	"github.com/noah-isme/edudash-api/internal/handler"
	"github.com/noah-isme/edudash-api/internal/middleware"
	"github.com/noah-isme/edudash-api/internal/models"
	"github.com/noah-isme/edudash-api/internal/repository"
	"github.com/noah-isme/edudash-api/internal/router"
	"github.com/noah-isme/edudash-api/internal/service"
	"github.com/noah-isme/edudash-api/internal/utils"
)

const adminPassword = "admin-password"

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:e2e_%d?mode=memory&cache=shared", time.Now().UnixNano())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	seedAdmin(t, db)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	cfg := config.Config{
		AppName:        "edudash",
		AppEnv:         "test",
		JWTSecret:      "e2e-secret",
		JWTTTL:         time.Hour,
		Timezone:       "UTC",
		Location:       time.UTC,
		ReportCacheTTL: time.Minute,
		DraftTTL:       time.Hour,
		LoginRateLimit: 100,
	}

	logger := zerolog.New(io.Discard)
	validation := utils.NewValidation()
	validate := validation.Validate
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	accountRepo := repository.NewAccountRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	resolver := service.NewSessionResolver(accountRepo, redisClient, logger)
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	authService := service.NewAuthService(accountRepo, memberRepo, schoolRepo, resolver, tokens, validate, activity, logger)
	reports := service.NewReportService(attendanceRepo, batchRepo, memberRepo, service.ReportServiceOptions{
		Cache:    redisClient,
		CacheTTL: cfg.ReportCacheTTL,
		Activity: activity,
		Location: cfg.Location,
	}, logger)
	batchService := service.NewBatchService(batchRepo, schoolRepo, validate, activity, reports, logger)
	memberService := service.NewMemberService(memberRepo, accountRepo, batchRepo, schoolRepo, resolver, validate, activity, reports, logger)
	attendance := service.NewAttendanceService(attendanceRepo, batchRepo, memberRepo, validate, service.AttendanceServiceOptions{
		Drafts:   service.NewDraftStore(redisClient, cfg.DraftTTL, logger),
		Reports:  reports,
		Activity: activity,
		Location: cfg.Location,
	}, logger)
	sessions := service.NewSessionService(sessionRepo, memberRepo, batchRepo, nil, validate, activity, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		Tokens:            tokens,
		Resolver:          resolver,
		Logger:            logger,
		AuthHandler:       handler.NewAuthHandler(authService, validation, logger),
		BatchHandler:      handler.NewBatchHandler(batchService, validation, logger),
		MemberHandler:     handler.NewMemberHandler(memberService, nil, validation, logger),
		SessionHandler:    handler.NewSessionHandler(sessions, validation, cfg.Location, logger),
		AttendanceHandler: handler.NewAttendanceHandler(attendance, nil, validation, logger),
		ReportHandler:     handler.NewReportHandler(reports, validation, logger),
		ActivityHandler:   handler.NewActivityHandler(activity, logger),
	})
	return app
}

func seedAdmin(t *testing.T, db *gorm.DB) {
	t.Helper()
	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	profile := models.Profile{Name: "Ada", Email: "ada@example.com", Status: models.ProfileStatusActive, PasswordHash: hash}
	require.NoError(t, db.Create(&profile).Error)
	require.NoError(t, db.Create(&models.UserRole{ProfileID: profile.ID, Role: models.RoleAdmin}).Error)
}

func call(t *testing.T, app *fiber.App, method, target, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response, target *T) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func login(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()
	resp := call(t, app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var body envelope[dto.LoginResponse]
	decode(t, resp, &body)
	require.NotEmpty(t, body.Data.AccessToken)
	return body.Data.AccessToken
}

func TestAttendanceEndToEnd(t *testing.T) {
	app := setupApp(t)
	admin := login(t, app, "ada@example.com", adminPassword)

	resp := call(t, app, http.MethodPost, "/api/v1/admin/batches", admin, dto.BatchCreateRequest{Name: "2024-Alpha", StartDate: "2024-01-08"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var batch envelope[dto.BatchResponse]
	decode(t, resp, &batch)
	batchQuery := "batch_id=" + strconv.FormatUint(uint64(batch.Data.ID), 10)

	resp = call(t, app, http.MethodPost, "/api/v1/admin/students", admin, dto.MemberCreateRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		BatchID:  &batch.Data.ID,
		Password: "alice-password",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var student envelope[dto.MemberResponse]
	decode(t, resp, &student)

	resp = call(t, app, http.MethodGet, "/api/v1/admin/attendance/students/grid?view=week&date=2024-01-10&"+batchQuery, admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var grid envelope[dto.AttendanceGridResponse]
	decode(t, resp, &grid)
	require.Equal(t, []string{"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13", "2024-01-14"}, grid.Data.Dates)
	require.False(t, grid.Data.Prev.Enabled)
	require.Len(t, grid.Data.Rows, 1)

	edits := dto.AttendanceDraftRequest{Edits: []dto.AttendanceEdit{
		{PersonID: student.Data.ID, Date: "2024-01-09", Status: "present"},
		{PersonID: student.Data.ID, Date: "2024-01-10", Status: "absent"},
	}}
	resp = call(t, app, http.MethodPatch, "/api/v1/admin/attendance/students/grid/draft?view=week&date=2024-01-10&"+batchQuery, admin, edits)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var draft envelope[dto.AttendanceDraftResponse]
	decode(t, resp, &draft)
	require.True(t, draft.Data.Grid.Dirty)
	require.Empty(t, draft.Data.Rejected)

	resp = call(t, app, http.MethodPut, "/api/v1/admin/attendance/students/grid?view=week&date=2024-01-10&"+batchQuery, admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var saved envelope[dto.AttendanceSaveResponse]
	decode(t, resp, &saved)
	require.Equal(t, 2, saved.Data.Saved)
	require.False(t, saved.Data.Grid.Dirty)

	resp = call(t, app, http.MethodGet, "/api/v1/admin/reports/attendance?month=2024-01&"+batchQuery, admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var report envelope[dto.AttendanceReportResponse]
	decode(t, resp, &report)
	require.Len(t, report.Data.Rows, 1)
	require.Equal(t, 1, report.Data.Rows[0].Present)
	require.Equal(t, 1, report.Data.Rows[0].Absent)
	require.Equal(t, 50, report.Data.Rows[0].Percent)
	require.Equal(t, "2024-Alpha_2024-01_Attendance.pdf", report.Data.FileName)

	resp = call(t, app, http.MethodGet, "/api/v1/admin/reports/attendance.csv?month=2024-01&"+batchQuery, admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "2024-Alpha_2024-01_Attendance.csv")

	alice := login(t, app, "alice@example.com", "alice-password")
	resp = call(t, app, http.MethodGet, "/api/v1/student/attendance?month=2024-01", alice, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var history envelope[dto.MyAttendanceResponse]
	decode(t, resp, &history)
	require.Equal(t, 1, history.Data.Present)
	require.Equal(t, 1, history.Data.Absent)
	require.Equal(t, 50, history.Data.Percent)

	resp = call(t, app, http.MethodGet, "/api/v1/admin/attendance/students/grid?"+batchQuery, alice, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = call(t, app, http.MethodGet, "/api/v1/admin/activity?action=attendance.saved", admin, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var logs envelope[[]dto.AdminActivityResponse]
	decode(t, resp, &logs)
	require.NotEmpty(t, logs.Data)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	app := setupApp(t)
	resp := call(t, app, http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "ada@example.com", Password: "nope-nope"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
