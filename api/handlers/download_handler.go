package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/video-dl-api/internal/domain"
	"go.uber.org/zap"
)

// Downloader is the pipeline behind POST /download
type Downloader interface {
	Authorize(authHeader string) error
	Download(ctx context.Context, authHeader, rawURL string) (*domain.Artifact, error)
}

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	service Downloader
	logger  *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(service Downloader, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		service: service,
		logger:  logger,
	}
}

// Download handles POST /download
func (h *DownloadHandler) Download(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")

	// Reject before reading the body
	if err := h.service.Authorize(authHeader); err != nil {
		respondError(c, err)
		return
	}

	var req domain.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, domain.NewMediaError(domain.KindBadRequest, "malformed request body", err))
		return
	}

	artifact, err := h.service.Download(c.Request.Context(), authHeader, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := artifact.Release(); err != nil {
			h.logger.Warn("Failed to release artifact", zap.String("path", artifact.Path), zap.Error(err))
		}
	}()

	file, err := os.Open(artifact.Path)
	if err != nil {
		respondError(c, domain.NewMediaError(domain.KindUnknown, "artifact unreadable", err))
		return
	}
	defer file.Close()

	c.DataFromReader(http.StatusOK, artifact.Size, artifact.ContentType, file, map[string]string{
		"Content-Disposition":    fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename),
		"X-Content-Type-Options": "nosniff",
	})
}

// respondError writes the stable public message for err's kind
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	c.Error(err)
	c.AbortWithStatusJSON(kind.HTTPStatus(), gin.H{"detail": kind.PublicMessage()})
}
