package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clipshare/internal/config"
	"clipshare/internal/database"
	"clipshare/internal/middleware"
	"clipshare/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "webslinger1"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

type envelope struct {
	Data           json.RawMessage `json:"data"`
	Error          json.RawMessage `json:"error"`
	NewAccessToken string          `json:"newAccessToken"`
}

func testConfig(t *testing.T, flags string) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:            "test-secret-that-is-at-least-32-chars",
		JWTIssuer:            "clipshare-api",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      24 * time.Hour,
		BaseURL:              "http://api.test",
		AllowedOrigins:       "http://localhost:5173",
		FeatureFlags:         flags,
		Env:                  "test",
		MediaDir:             t.TempDir(),
		MediaBaseURL:         "http://api.test/media",
		MediaMaxUploadSizeMB: 5,
	}
}

func newTestEnv(t *testing.T, flags string, opts ...Option) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	opts = append([]Option{WithBcryptCost(bcrypt.MinCost)}, opts...)
	srv, err := NewServerWithDeps(testConfig(t, flags), db, rdb, opts...)
	require.NoError(t, err)

	return &testEnv{srv: srv, app: srv.App(), db: db, mr: mr}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.send(t, req)
}

func jsonRequest(method, path, raw string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func (e *testEnv) register(t *testing.T, username string) {
	t.Helper()

	status, _ := e.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username,
		"name":     username,
		"email":    username + "@example.com",
		"password": testPassword,
		"type":     models.UserTypeUser,
		"country":  "us",
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)
}

func (e *testEnv) login(t *testing.T, username string) models.SessionUser {
	t.Helper()

	status, env := e.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    username + "@example.com",
		"password": testPassword,
	}, nil)
	require.Equal(t, fiber.StatusOK, status, string(env.Error))

	var session models.SessionUser
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session
}

func (e *testEnv) signUp(t *testing.T, username string) models.SessionUser {
	t.Helper()
	e.register(t, username)
	return e.login(t, username)
}

func accessHeader(s models.SessionUser) map[string]string {
	return map[string]string{middleware.HeaderAccessToken: s.AccessToken}
}

func errorMessage(t *testing.T, env envelope) string {
	t.Helper()
	var msg string
	require.NoError(t, json.Unmarshal(env.Error, &msg), string(env.Error))
	return msg
}

func TestHealthChecks(t *testing.T) {
	e := newTestEnv(t, "")

	status, _ := e.do(t, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, fiber.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["redis"])
}

func TestReadinessCheck_RedisDownStaysReady(t *testing.T) {
	e := newTestEnv(t, "")
	e.mr.Close()

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestErrorHandler_InternalErrorsAreGeneric(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return models.NewInternalError(context.DeadlineExceeded)
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	e := &testEnv{app: app}

	status, env := e.do(t, http.MethodGet, "/boom", nil, nil)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, models.InternalMessage, errorMessage(t, env))
	assert.Equal(t, "null", string(env.Data))

	status, env = e.do(t, http.MethodGet, "/missing", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "Not Found", errorMessage(t, env))
}
