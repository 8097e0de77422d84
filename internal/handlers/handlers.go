package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
)

// FileStore is the object storage the upload endpoints write to.
// Satisfied by *storage.Storage.
type FileStore interface {
	Upload(ctx context.Context, kind storage.Kind, owner int, r io.Reader, size int64, contentType string) (models.Upload, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// Deps are the services the handlers are built from. Files may be nil when
// no object storage is configured.
type Deps struct {
	Users         *services.UserService
	Papers        *services.PaperService
	Feed          *services.FeedService
	Notifications *services.NotificationService
	Files         FileStore
	Logger        *zap.Logger
}

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Paper        *PaperHandler
	Post         *PostHandler
	Comment      *CommentHandler
	User         *UserHandler
	Upload       *UploadHandler
	Notification *NotificationHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handler{
		Auth:         &AuthHandler{users: d.Users, logger: d.Logger},
		Paper:        &PaperHandler{papers: d.Papers, files: d.Files, logger: d.Logger},
		Post:         &PostHandler{feed: d.Feed, logger: d.Logger},
		Comment:      &CommentHandler{feed: d.Feed, logger: d.Logger},
		User:         &UserHandler{users: d.Users, files: d.Files, logger: d.Logger},
		Upload:       &UploadHandler{files: d.Files, logger: d.Logger},
		Notification: &NotificationHandler{notifications: d.Notifications, logger: d.Logger},
	}
}

// Polling intervals the client uses for "new items" checks.
var pollingIntervals = gin.H{
	"posts_ms":        30000,
	"comments_ms":     15000,
	"interactions_ms": 10000,
}

func PollingConfig(c *gin.Context) {
	c.JSON(http.StatusOK, pollingIntervals)
}
