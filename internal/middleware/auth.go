package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	apierrors "github.com/taskly/taskly-api/internal/errors"
	"github.com/taskly/taskly-api/internal/token"
)

const (
	ContextKeyUserID = "user_id"
	ContextKeyTaskID = "task_id"
)

// TokenVerifier resolves a session token to a user id.
type TokenVerifier interface {
	VerifyToken(raw string) (string, error)
}

// RequireAuth checks the session token carried in header. A bearer
// Authorization header is accepted as a fallback.
func RequireAuth(verifier TokenVerifier, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(header))
		if raw == "" {
			raw = bearerToken(c.GetHeader("Authorization"))
		}
		if raw == "" {
			apierrors.Unauthorized(c, "No token, authorization denied")
			return
		}

		userID, err := verifier.VerifyToken(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpiredToken) {
				apierrors.TokenExpired(c)
				return
			}
			apierrors.Unauthorized(c, "Token is not valid")
			return
		}

		// Store user ID in context for easy access in handlers
		c.Set(ContextKeyUserID, userID)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func bearerToken(value string) string {
	const prefix = "Bearer "
	if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
		return strings.TrimSpace(value[len(prefix):])
	}
	return ""
}
