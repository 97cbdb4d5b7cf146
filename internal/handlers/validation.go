package handlers

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/taskly/taskly-api/internal/errors"
)

// respondBindError reports a failed ShouldBindJSON. Validation failures
// carry a field -> rule map in details.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[lowerFirst(fe.Field())] = fe.Tag()
	}
	apierrors.BadRequestWithDetails(c, "Validation failed", details)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
