package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskly/taskly-api/internal/config"
	"github.com/taskly/taskly-api/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		TokenTTL:           time.Hour,
		AuthHeader:         "x-auth-token",
		AIModel:            "gpt-4o-mini",
		AIMaxRetries:       5,
		AIRetryBaseDelay:   2 * time.Second,
		CORSAllowedOrigins: []string{"*"},
	}

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewRouter(cfg, NewServices(cfg, db), logger)
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func (c apiClient) do(method, path, tok string, body any) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("x-auth-token", tok)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var decoded map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestHealth(t *testing.T) {
	client := apiClient{t: t, router: newTestRouter(t)}

	w, body := client.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestTaskLifecycle(t *testing.T) {
	client := apiClient{t: t, router: newTestRouter(t)}

	w, alice := client.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	aliceToken := alice["token"].(string)

	w, login := client.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"emailOrUsername": "a@x.com", "password": "p1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, alice["userId"], login["userId"])

	w, bob := client.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "email": "b@x.com", "password": "p2",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	bobToken := bob["token"].(string)

	w, _ = client.do(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = client.do(http.MethodGet, "/api/tasks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, task := client.do(http.MethodPost, "/api/tasks", aliceToken, map[string]any{"title": "Buy milk"})
	require.Equal(t, http.StatusCreated, w.Code)
	taskID := task["id"].(string)
	assert.Equal(t, alice["userId"], task["userId"])
	assert.Equal(t, "pending", task["status"])

	w, _ = client.do(http.MethodGet, "/api/tasks/"+taskID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = client.do(http.MethodPut, "/api/tasks/"+taskID, bobToken, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = client.do(http.MethodGet, "/api/tasks", bobToken, nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	w, updated := client.do(http.MethodPut, "/api/tasks/"+taskID, aliceToken, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", updated["status"])
	assert.Equal(t, "Buy milk", updated["title"])

	w, stats := client.do(http.MethodGet, "/api/tasks/stats", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), stats["completed"])
	assert.Equal(t, float64(100), stats["completionRate"])

	w, me := client.do(http.MethodGet, "/api/auth/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", me["username"])

	w, _ = client.do(http.MethodPost, "/api/tasks/suggest", aliceToken, map[string]any{"mainTaskTitle": "Plan trip"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w, _ = client.do(http.MethodDelete, "/api/tasks/"+taskID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, removed := client.do(http.MethodDelete, "/api/tasks/"+taskID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Task removed", removed["msg"])

	w, _ = client.do(http.MethodGet, "/api/tasks/"+taskID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "x-auth-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	client := apiClient{t: t, router: newTestRouter(t)}

	w, body := client.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "Route not found", body["message"])
}

func TestPanicRecoveredAsJSON(t *testing.T) {
	router := newTestRouter(t)
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})
	client := apiClient{t: t, router: router}

	w, body := client.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}
