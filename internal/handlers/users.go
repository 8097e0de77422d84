package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
)

type UserHandler struct {
	users  *services.UserService
	files  FileStore
	logger *zap.Logger
}

// GetUserProfile returns a user's public profile with post and like totals
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	profile, err := h.users.Profile(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetProfile returns the caller's own profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile updates the caller's name, email, image and bio
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "message": "Profile updated successfully"})
}

// UploadAvatar stores an image (multipart field "file") and makes it the
// caller's avatar.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	upload, ok := receiveFile(c, h.files, h.logger, storage.Avatar)
	if !ok {
		return
	}
	user, err := h.users.SetImage(c.Request.Context(), currentUser(c), upload.URL)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "upload": upload})
}
