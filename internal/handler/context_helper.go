package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ujumbe360/school-portal-api/internal/middleware"
	"github.com/ujumbe360/school-portal-api/internal/models"
	appErrors "github.com/ujumbe360/school-portal-api/pkg/errors"
)

// adminCacheInvalidator drops the cached staff dashboard after writes
// that change its counts.
type adminCacheInvalidator interface {
	InvalidateAdmin(ctx context.Context)
}

// currentPrincipal returns the resolved principal or an unauthorized error.
func currentPrincipal(c *gin.Context) (*models.Principal, error) {
	principal, ok := middleware.Principal(c)
	if !ok || principal == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return principal, nil
}

// pageParams reads page and limit query values with defaults.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || size < 1 {
		size = 20
	}
	return page, size
}

// paginationMeta builds the envelope pagination block.
func paginationMeta(page, pageSize, total int) *models.Pagination {
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
