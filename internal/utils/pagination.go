package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	MinPage         = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams holds the pagination parameters. A zero Limit means
// the caller asked for the full, unpaginated list.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// GetPaginationParams extracts pagination parameters from the request.
// Pagination is opt-in: without page or limit the full list is returned.
func GetPaginationParams(c *gin.Context) PaginationParams {
	pageStr, hasPage := c.GetQuery("page")
	limitStr, hasLimit := c.GetQuery("limit")
	if !hasPage && !hasLimit {
		return PaginationParams{}
	}

	page, _ := strconv.Atoi(pageStr)
	limit, _ := strconv.Atoi(limitStr)

	if page < MinPage {
		page = MinPage
	}
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
