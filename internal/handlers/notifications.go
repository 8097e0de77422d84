package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	logger        *zap.Logger
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	list, err := h.notifications.List(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// MarkRead marks the given ids read, or everything when the body has none.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var input struct {
		IDs []int `json:"ids"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), currentUser(c), input.IDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
