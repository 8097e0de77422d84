package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/middleware"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrConflict, http.StatusConflict},
	{services.ErrUnauthorized, http.StatusUnauthorized},
	{storage.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{storage.ErrUnsupportedType, http.StatusUnsupportedMediaType},
	{storage.ErrEmpty, http.StatusBadRequest},
}

// writeError maps service errors onto status codes. Unknown errors are logged
// and reported as 500 without detail.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			c.JSON(s.status, gin.H{"error": err.Error()})
			return
		}
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	_ = c.Error(err)
	logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// idParam parses a positive integer path parameter, answering 400 otherwise.
func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// currentUser is the authenticated caller, or 0 for anonymous requests.
func currentUser(c *gin.Context) int {
	id, _ := middleware.UserID(c)
	return id
}

// limitQuery reads the optional "limit" parameter. Absent yields 0, which
// services read as their default; a sent value must be a positive integer.
func limitQuery(c *gin.Context) (int, bool) {
	raw, sent := c.GetQuery("limit")
	if !sent {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}

// pageQuery is the shared limit/cursor query string of list endpoints.
type pageQuery struct {
	Limit  int  `form:"-"`
	Cursor *int `form:"cursor"`
}

func bindPage(c *gin.Context) (pageQuery, bool) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters"})
		return q, false
	}
	limit, ok := limitQuery(c)
	if !ok {
		return q, false
	}
	q.Limit = limit
	return q, true
}
