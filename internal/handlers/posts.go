package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
)

type PostHandler struct {
	feed   *services.FeedService
	logger *zap.Logger
}

// GetPosts returns a page of the top-level feed
func (h *PostHandler) GetPosts(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.feed.Feed(c.Request.Context(), currentUser(c), q.Limit, q.Cursor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	post, err := h.feed.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost creates a new post or reply (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.feed.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// DeletePost deletes a post (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.feed.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PostHandler) LikePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.feed.ToggleLike(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": res.Active, "like_count": res.Count})
}

func (h *PostHandler) RetweetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.feed.ToggleRetweet(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"retweeted": res.Active, "retweet_count": res.Count})
}

func (h *PostHandler) BookmarkPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	res, err := h.feed.ToggleBookmark(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmarked": res.Active})
}

// GetBookmarks lists the caller's bookmarks; the cursor is a bookmark id.
func (h *PostHandler) GetBookmarks(c *gin.Context) {
	q, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.feed.Bookmarks(c.Request.Context(), currentUser(c), q.Limit, q.Cursor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetLatest returns the newest post, or null.
func (h *PostHandler) GetLatest(c *gin.Context) {
	post, err := h.feed.Latest(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// GetNewPosts answers the feed poll: ?since=<unix ms>.
func (h *PostHandler) GetNewPosts(c *gin.Context) {
	since, ok := sinceQuery(c)
	if !ok {
		return
	}
	items, err := h.feed.NewPosts(c.Request.Context(), currentUser(c), since)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetUserPosts returns a user's top-level posts
func (h *PostHandler) GetUserPosts(c *gin.Context) {
	authorID, ok := idParam(c, "id")
	if !ok {
		return
	}
	q, ok := bindPage(c)
	if !ok {
		return
	}
	page, err := h.feed.UserPosts(c.Request.Context(), currentUser(c), authorID, q.Limit, q.Cursor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) TrendingHashtags(c *gin.Context) {
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	tags, err := h.feed.TrendingHashtags(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func sinceQuery(c *gin.Context) (time.Time, bool) {
	ms, err := strconv.ParseInt(c.Query("since"), 10, 64)
	if err != nil || ms < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a unix timestamp in milliseconds"})
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}
