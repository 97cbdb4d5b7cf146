package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/taskly/taskly-api/internal/token"
)

type stubVerifier struct {
	userID string
	err    error
	seen   string
}

func (s *stubVerifier) VerifyToken(raw string) (string, error) {
	s.seen = raw
	return s.userID, s.err
}

func newAuthRouter(verifier TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", RequireAuth(verifier, "x-auth-token"), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.String(http.StatusOK, userID)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		verifier   *stubVerifier
		wantStatus int
		wantBody   string
		wantSeen   string
	}{
		{
			name:       "valid header",
			headers:    map[string]string{"x-auth-token": "tok"},
			verifier:   &stubVerifier{userID: "u1"},
			wantStatus: http.StatusOK,
			wantBody:   "u1",
			wantSeen:   "tok",
		},
		{
			name:       "bearer fallback",
			headers:    map[string]string{"Authorization": "Bearer tok2"},
			verifier:   &stubVerifier{userID: "u2"},
			wantStatus: http.StatusOK,
			wantBody:   "u2",
			wantSeen:   "tok2",
		},
		{
			name:       "missing token",
			verifier:   &stubVerifier{userID: "u1"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "UNAUTHORIZED",
		},
		{
			name:       "invalid token",
			headers:    map[string]string{"x-auth-token": "bad"},
			verifier:   &stubVerifier{err: token.ErrInvalidToken},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "UNAUTHORIZED",
			wantSeen:   "bad",
		},
		{
			name:       "expired token",
			headers:    map[string]string{"x-auth-token": "old"},
			verifier:   &stubVerifier{err: token.ErrExpiredToken},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "TOKEN_EXPIRED",
			wantSeen:   "old",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newAuthRouter(tt.verifier).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Equal(t, tt.wantSeen, tt.verifier.seen)
		})
	}
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetUserID(c)
	assert.False(t, ok)

	c.Set(ContextKeyUserID, 42)
	_, ok = GetUserID(c)
	assert.False(t, ok)
}

func TestRequireTaskID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/tasks/:id", RequireTaskID(), func(c *gin.Context) {
		id, _ := GetTaskID(c)
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/6F9619FF-8B86-D011-B42D-00C04FC964FF", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks/12345", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	out := buf.String()
	assert.Contains(t, out, `"method":"GET"`)
	assert.Contains(t, out, `"path":"/ok"`)
	assert.Contains(t, out, `"status":204`)
}
