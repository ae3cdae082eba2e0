package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/video-dl-api/internal/domain"
	"github.com/yourusername/video-dl-api/internal/infrastructure"
	"github.com/yourusername/video-dl-api/internal/metrics"
	"go.uber.org/zap"
)

// Version is reported by /health and the version command
const Version = "1.0.0"

// DownloadService runs one request through auth, extraction and normalization
type DownloadService struct {
	auth       *AuthGate
	extractor  domain.Extractor
	normalizer domain.Normalizer
	workspaces *infrastructure.WorkspaceFactory
	logger     *zap.Logger
}

// NewDownloadService creates a new download service
func NewDownloadService(
	auth *AuthGate,
	extractor domain.Extractor,
	normalizer domain.Normalizer,
	workspaces *infrastructure.WorkspaceFactory,
	logger *zap.Logger,
) *DownloadService {
	return &DownloadService{
		auth:       auth,
		extractor:  extractor,
		normalizer: normalizer,
		workspaces: workspaces,
		logger:     logger,
	}
}

// Authorize checks the Authorization header without doing any work
func (s *DownloadService) Authorize(authHeader string) error {
	return s.auth.Authorize(authHeader)
}

// Download fetches rawURL and returns a QuickTime-compatible artifact.
// The caller must Release the artifact once it has been streamed; on error
// nothing is left on disk.
func (s *DownloadService) Download(ctx context.Context, authHeader, rawURL string) (*domain.Artifact, error) {
	if err := s.auth.Authorize(authHeader); err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(domain.KindUnauthorized)).Inc()
		return nil, err
	}

	u, err := domain.ValidateURL(rawURL)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(domain.KindBadRequest)).Inc()
		return nil, domain.NewMediaError(domain.KindBadRequest, "invalid url", err)
	}
	// Everything downstream sees the canonical form
	rawURL = u.String()

	workspace, err := s.workspaces.Create()
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(string(domain.KindUnknown)).Inc()
		return nil, domain.NewMediaError(domain.KindUnknown, "workspace unavailable", err)
	}

	log := s.logger.With(
		zap.String("request_id", workspace.ID),
		zap.String("url", rawURL))
	log.Info("Processing download", zap.String("platform", string(domain.DetectPlatform(rawURL))))

	start := time.Now()
	artifact, err := s.process(ctx, workspace, rawURL)
	if err != nil {
		kind := domain.KindOf(err)
		metrics.DownloadsTotal.WithLabelValues(string(kind)).Inc()
		log.Error("Download failed",
			zap.String("kind", string(kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if cleanupErr := workspace.Cleanup(); cleanupErr != nil {
			log.Warn("Failed to clean up workspace", zap.Error(cleanupErr))
		}
		return nil, err
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	log.Info("Download ready",
		zap.String("filename", artifact.Filename),
		zap.Int64("size", artifact.Size),
		zap.Duration("elapsed", time.Since(start)))
	return artifact, nil
}

func (s *DownloadService) process(ctx context.Context, workspace *infrastructure.Workspace, rawURL string) (*domain.Artifact, error) {
	media, err := s.extractor.Extract(ctx, rawURL, workspace.Dir)
	if err != nil {
		return nil, asMediaError(err, domain.KindUnknown)
	}

	normalized, err := s.normalizer.Normalize(ctx, media, workspace.Dir)
	if err != nil {
		return nil, asMediaError(err, domain.KindTranscodeFailed)
	}

	info, err := os.Stat(normalized.Path)
	if err != nil {
		return nil, domain.NewMediaError(domain.KindTranscodeFailed, "normalized file missing", err)
	}
	if info.Size() == 0 {
		return nil, domain.NewMediaError(domain.KindTranscodeFailed, "normalized file is empty", nil)
	}

	filename := domain.SanitizeFilename(normalized.Title)
	return domain.NewArtifact(normalized.Path, filename, info.Size(), workspace.Cleanup), nil
}

// asMediaError keeps classified errors as they are and wraps the rest with kind
func asMediaError(err error, kind domain.ErrorKind) error {
	var mediaErr *domain.MediaError
	if errors.As(err, &mediaErr) {
		return err
	}
	return domain.NewMediaError(kind, fmt.Sprintf("unclassified %s failure", kind), err)
}
