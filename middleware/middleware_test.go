package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/api/me", Verify(secret), func(c *fiber.Ctx) error {
		return c.SendString(TechnicianID(c))
	})
	return app
}

func TestVerifyAcceptsCookieAndBearer(t *testing.T) {
	app := protectedApp("s3cret")
	token, _, err := IssueToken("s3cret", "T-9", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Cookie", TokenCookie+"="+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	app := protectedApp("s3cret")
	expired, _, err := IssueToken("s3cret", "T-9", time.Now().Add(-2*TokenTTL))
	require.NoError(t, err)
	forged, _, err := IssueToken("other", "T-9", time.Now())
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing": "",
		"expired": "Bearer " + expired,
		"forged":  "Bearer " + forged,
		"garbage": "Bearer abc.def.ghi",
	} {
		req := httptest.NewRequest("GET", "/api/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestRequestLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultLogConfig(filepath.Join(dir, "requests.log"))
	cfg.Console = false

	app := fiber.New()
	app.Use(RequestLogger(cfg))
	app.Get("/api/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/bad", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusBadRequest) })
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	for _, path := range []string{"/api/ok", "/api/bad", "/health"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	data, err := os.ReadFile(cfg.LogFilePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry LogData
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "/api/bad", entry.Path)
	assert.Equal(t, fiber.StatusBadRequest, entry.Status)

	errData, err := os.ReadFile(cfg.ErrorLogPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(errData), "\n"))
}

func TestRequestLoggerLeavesStreamsUnread(t *testing.T) {
	cfg := DefaultLogConfig(filepath.Join(t.TempDir(), "requests.log"))
	cfg.Console = false

	app := fiber.New()
	app.Use(RequestLogger(cfg))
	app.Get("/api/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/api/pdf", func(c *fiber.Ctx) error {
		return c.SendStream(bytes.NewReader([]byte("%PDF-1.3 body")))
	})

	for _, path := range []string{"/api/ok", "/api/pdf"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		if path == "/api/pdf" {
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, "%PDF-1.3 body", string(body))
		}
	}

	data, err := os.ReadFile(cfg.LogFilePath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var plain, streamed LogData
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &plain))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &streamed))
	assert.EqualValues(t, 2, plain.ContentLength)
	assert.EqualValues(t, -1, streamed.ContentLength)
}
