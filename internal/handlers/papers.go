package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/models"
	"github.com/emilythestrangee/paperboard/backend/internal/services"
	"github.com/emilythestrangee/paperboard/backend/internal/storage"
)

type PaperHandler struct {
	papers *services.PaperService
	files  FileStore
	logger *zap.Logger
}

// SearchPapers lists papers matching the optional term and filters.
func (h *PaperHandler) SearchPapers(c *gin.Context) {
	var q models.PaperSearch
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search parameters"})
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	q.Limit = limit
	papers, err := h.papers.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, papers)
}

func (h *PaperHandler) Facets(c *gin.Context) {
	c.JSON(http.StatusOK, h.papers.Facets())
}

func (h *PaperHandler) GetPaper(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	paper, err := h.papers.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paper)
}

// CreatePaper stores paper metadata. The PDF is referenced either by URL or
// by the key returned from UploadPDF.
func (h *PaperHandler) CreatePaper(c *gin.Context) {
	var input models.CreatePaperRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.PDFKey != "" {
		if h.files == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pdf_key"})
			return
		}
		if input.PaperPDFURL == "" {
			input.PaperPDFURL = h.files.URL(input.PDFKey)
		}
	}

	paper, err := h.papers.Create(c.Request.Context(), currentUser(c), input)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, paper)
}

func (h *PaperHandler) DeletePaper(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.papers.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DownloadPaper redirects to a short-lived link for stored PDFs and to the
// recorded URL otherwise.
func (h *PaperHandler) DownloadPaper(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	paper, err := h.papers.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	target := paper.PaperPDFURL
	if paper.PDFKey != "" && h.files != nil {
		target, err = h.files.PresignGet(c.Request.Context(), paper.PDFKey)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
	}
	if target == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Paper has no PDF"})
		return
	}
	c.Redirect(http.StatusFound, target)
}

// UploadPDF stores a single PDF (multipart field "file").
func (h *PaperHandler) UploadPDF(c *gin.Context) {
	upload, ok := receiveFile(c, h.files, h.logger, storage.PaperPDF)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, upload)
}
