package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apierrors "github.com/taskly/taskly-api/internal/errors"
)

// RequireTaskID validates the :id parameter. An id that cannot name any
// task is reported as not found, the same as a missing one.
func RequireTaskID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			apierrors.NotFound(c, "Task not found")
			return
		}

		c.Set(ContextKeyTaskID, id.String())
		c.Next()
	}
}

// GetTaskID retrieves the validated task ID from context
func GetTaskID(c *gin.Context) (string, bool) {
	taskID, exists := c.Get(ContextKeyTaskID)
	if !exists {
		return "", false
	}
	id, ok := taskID.(string)
	return id, ok
}
