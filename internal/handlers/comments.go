package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
)

// CommentHandler serves replies. A comment is a post whose reply_to_id is
// the post in the path.
type CommentHandler struct {
	feed   *services.FeedService
	logger *zap.Logger
}

// GetComments returns a page of replies, oldest first
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	q, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.feed.Comments(c.Request.Context(), currentUser(c), postID, q.Limit, q.Cursor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateComment replies to the post in the path
func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.ReplyToID = &postID

	comment, err := h.feed.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GetNewComments answers the comment poll: ?since=<unix ms>.
func (h *CommentHandler) GetNewComments(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	since, ok := sinceQuery(c)
	if !ok {
		return
	}
	items, err := h.feed.NewComments(c.Request.Context(), currentUser(c), postID, since)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
