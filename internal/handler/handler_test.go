package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edudash-api/internal/auth"
	"github.com/noah-isme/edudash-api/internal/utils"
)

var (
	adminSession   = auth.Session{UserID: 1, Role: "admin", Name: "Ada", Active: true}
	teacherSession = auth.Session{UserID: 7, Role: "teacher", Name: "Tom", Active: true}
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidation() *utils.Validation {
	return utils.NewValidation()
}

// newSessionApp returns an app whose every request carries session.
func newSessionApp(session auth.Session) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", session.UserID)
		c.Locals("session", session)
		return c.Next()
	})
	return app
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Meta    json.RawMessage   `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}
