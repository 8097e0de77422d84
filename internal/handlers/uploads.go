package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
)

// multipartOverhead covers form boundaries and headers around the file bytes.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	files  FileStore
	logger *zap.Logger
}

// UploadPostImages stores up to four images (multipart field "files") and
// returns URLs usable as a post's media_urls.
func (h *UploadHandler) UploadPostImages(c *gin.Context) {
	if !storageReady(c, h.files) {
		return
	}
	kind := storage.PostMedia
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, kind.MaxSize*storage.MaxPostImages+multipartOverhead)

	form, err := c.MultipartForm()
	if err != nil {
		writeFormError(c, h.logger, err)
		return
	}
	headers := form.File["files"]
	switch {
	case len(headers) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files uploaded"})
		return
	case len(headers) > storage.MaxPostImages:
		c.JSON(http.StatusBadRequest, gin.H{"error": "At most 4 images per post"})
		return
	}

	// Reject the whole batch before anything is stored.
	for _, fh := range headers {
		if err := check(kind, fh); err != nil {
			writeError(c, h.logger, err)
			return
		}
	}

	uploads := make([]models.Upload, 0, len(headers))
	urls := make([]string, 0, len(headers))
	for _, fh := range headers {
		up, err := store(c, h.files, kind, fh)
		if err != nil {
			for _, done := range uploads {
				if rerr := h.files.Remove(c.Request.Context(), done.Key); rerr != nil {
					h.logger.Warn("failed to remove partial upload", zap.String("key", done.Key), zap.Error(rerr))
				}
			}
			writeError(c, h.logger, err)
			return
		}
		uploads = append(uploads, up)
		urls = append(urls, up.URL)
	}
	c.JSON(http.StatusCreated, gin.H{"urls": urls, "items": uploads})
}

// receiveFile reads the single multipart field "file" and stores it as kind.
// It writes the error response itself and reports whether it succeeded.
func receiveFile(c *gin.Context, files FileStore, logger *zap.Logger, kind storage.Kind) (models.Upload, bool) {
	if !storageReady(c, files) {
		return models.Upload{}, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, kind.MaxSize+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		writeFormError(c, logger, err)
		return models.Upload{}, false
	}
	up, err := store(c, files, kind, fh)
	if err != nil {
		writeError(c, logger, err)
		return models.Upload{}, false
	}
	return up, true
}

func store(c *gin.Context, files FileStore, kind storage.Kind, fh *multipart.FileHeader) (models.Upload, error) {
	if err := kind.Check(fh.Size, fh.Header.Get("Content-Type")); err != nil && !errors.Is(err, storage.ErrUnsupportedType) {
		return models.Upload{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return models.Upload{}, err
	}
	defer f.Close()

	// The declared type is only a hint; trust the bytes.
	contentType, err := storage.DetectContentType(f)
	if err != nil {
		return models.Upload{}, err
	}
	return files.Upload(c.Request.Context(), kind, currentUser(c), f, fh.Size, contentType)
}

// check applies kind's limits to fh using its sniffed content type.
func check(kind storage.Kind, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	contentType, err := storage.DetectContentType(f)
	if err != nil {
		return err
	}
	return kind.Check(fh.Size, contentType)
}

func storageReady(c *gin.Context, files FileStore) bool {
	if files == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is not configured"})
		return false
	}
	return true
}

func writeFormError(c *gin.Context, logger *zap.Logger, err error) {
	var tooBig *http.MaxBytesError
	switch {
	case errors.As(err, &tooBig):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
	default:
		logger.Debug("bad multipart form", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
	}
}
