package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/video-dl-api/internal/domain"
	"github.com/yourusername/video-dl-api/internal/metrics"
	"go.uber.org/zap"
)

// mediaBaseName is the yt-dlp output template stem; the ext is chosen by yt-dlp
const mediaBaseName = "media"

// YTDLPExtractor implements domain.Extractor with the yt-dlp executable
type YTDLPExtractor struct {
	config      *domain.ExtractorConfig
	credentials *CredentialStore
	runner      CommandRunner
	logger      *zap.Logger
}

// NewYTDLPExtractor creates a new yt-dlp extractor
func NewYTDLPExtractor(config *domain.ExtractorConfig, credentials *CredentialStore, runner CommandRunner, logger *zap.Logger) *YTDLPExtractor {
	return &YTDLPExtractor{
		config:      config,
		credentials: credentials,
		runner:      runner,
		logger:      logger,
	}
}

// Extract downloads rawURL into outputDir. X/Twitter URLs are retried over the
// configured backend APIs; the first success wins.
func (e *YTDLPExtractor) Extract(ctx context.Context, rawURL string, outputDir string) (*domain.MediaFile, error) {
	rawURL = strings.TrimSpace(rawURL)

	cookiePath, hasCookies, err := e.credentials.StageCookies(outputDir)
	if err != nil {
		e.logger.Warn("Continuing without cookies", zap.Error(err))
	}
	if !hasCookies {
		cookiePath = ""
	}

	attempts := []string{""}
	if domain.DetectPlatform(rawURL) == domain.PlatformX {
		attempts = e.credentials.TwitterAPIOrder()
	}

	kind := domain.KindUnknown
	var failures []error
	for _, api := range attempts {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}

		media, err := e.attempt(ctx, rawURL, outputDir, api, cookiePath)
		if err == nil {
			metrics.ExtractionAttemptsTotal.WithLabelValues(apiLabel(api), "success").Inc()
			return media, nil
		}

		attemptKind := domain.KindOf(err)
		metrics.ExtractionAttemptsTotal.WithLabelValues(apiLabel(api), string(attemptKind)).Inc()
		e.logger.Warn("Extraction attempt failed",
			zap.String("url", rawURL),
			zap.String("api", apiLabel(api)),
			zap.String("kind", string(attemptKind)),
			zap.Error(err))

		kind = domain.MoreSpecific(kind, attemptKind)
		failures = append(failures, err)
		if err := removePartialDownloads(outputDir); err != nil {
			e.logger.Warn("Failed to clear partial download", zap.Error(err))
		}
	}

	return nil, domain.NewMediaError(kind,
		fmt.Sprintf("extraction failed after %d attempt(s)", len(failures)),
		errors.Join(failures...))
}

// attempt runs yt-dlp once with an optional X/Twitter backend API
func (e *YTDLPExtractor) attempt(ctx context.Context, rawURL, outputDir, api, cookiePath string) (*domain.MediaFile, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	args := e.buildArgs(rawURL, outputDir, api, cookiePath)

	start := time.Now()
	result, err := e.runner.Run(ctx, e.config.Binary, args...)
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	if err != nil {
		var stderr []byte
		if result != nil {
			stderr = result.Stderr
		}
		if errors.Is(err, context.Canceled) {
			return nil, domain.NewMediaError(domain.KindUnknown, "extraction cancelled", err)
		}
		kind, detail := classifyYTDLPError(stderr, err)
		return nil, domain.NewMediaError(kind, detail, err)
	}

	media, err := e.collectResult(outputDir)
	if err != nil {
		return nil, domain.NewMediaError(domain.KindUnknown, "could not locate downloaded media", err)
	}

	e.logger.Info("Downloaded",
		zap.String("url", rawURL),
		zap.String("api", apiLabel(api)),
		zap.String("file", media.Path),
		zap.String("container", media.Container),
		zap.String("vcodec", media.VideoCodec),
		zap.String("acodec", media.AudioCodec),
		zap.String("resolution", formatResolution(media.Width, media.Height)))
	return media, nil
}

// buildArgs builds the yt-dlp argument list.
// Note: exec.Command passes args directly to process, no shell quoting needed
func (e *YTDLPExtractor) buildArgs(rawURL, outputDir, api, cookiePath string) []string {
	format := e.config.Format
	if format == "" {
		format = domain.DefaultFormat
	}

	args := []string{
		"-f", format,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--restrict-filenames",
		"--write-info-json",
		"--no-progress",
		"--retries", "5",
		"--fragment-retries", "5",
		"--file-access-retries", "3",
		"--extractor-retries", "3",
		"--socket-timeout", "30",
		"--concurrent-fragments", "4",
		"-P", outputDir,
		"-o", mediaBaseName + ".%(ext)s",
	}

	if cookiePath != "" {
		args = append(args, "--cookies", cookiePath)
	}
	if e.config.UserAgent != "" {
		args = append(args, "--user-agent", e.config.UserAgent)
	}
	if e.config.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", e.config.FFmpegLocation)
	}
	if api != "" {
		args = append(args, "--extractor-args", "twitter:api="+api)
	}

	return append(args, "--", rawURL)
}

// ytdlpInfo is the subset of yt-dlp's .info.json that we read
type ytdlpInfo struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Ext    string  `json:"ext"`
	VCodec string  `json:"vcodec"`
	ACodec string  `json:"acodec"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// collectResult finds the downloaded media file and its metadata in outputDir
func (e *YTDLPExtractor) collectResult(outputDir string) (*domain.MediaFile, error) {
	files, err := findMediaFiles(outputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrNoMediaFile
	}

	info, err := readInfoJSON(outputDir)
	if err != nil {
		e.logger.Warn("No usable .info.json, continuing without metadata", zap.Error(err))
		info = &ytdlpInfo{}
	}

	path := pickMediaFile(files, info.Ext)
	title := info.Title
	if title == "" {
		title = info.ID
	}

	return &domain.MediaFile{
		Path:       path,
		Title:      title,
		Container:  containerOf(path),
		VideoCodec: streamCodec(info.VCodec),
		AudioCodec: streamCodec(info.ACodec),
		Width:      int(info.Width),
		Height:     int(info.Height),
	}, nil
}

// findMediaFiles lists finished media files in dir; metadata, cookies and partial files are skipped
func findMediaFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Size() == 0 {
			return nil
		}
		if isMediaFile(path) && !strings.HasSuffix(path, ".info.json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// pickMediaFile prefers media.<ext> from the info file, then the largest candidate
func pickMediaFile(files []string, ext string) string {
	if ext != "" {
		for _, file := range files {
			if filepath.Base(file) == mediaBaseName+"."+ext {
				return file
			}
		}
	}

	best := files[0]
	var bestSize int64 = -1
	for _, file := range files {
		if info, err := os.Stat(file); err == nil && info.Size() > bestSize {
			best, bestSize = file, info.Size()
		}
	}
	return best
}

// readInfoJSON parses the first .info.json in dir
func readInfoJSON(dir string) (*ytdlpInfo, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.info.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no .info.json in %s", dir)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(matches[0]), err)
	}
	return &info, nil
}

// removePartialDownloads deletes everything an attempt left behind except the staged cookie file
func removePartialDownloads(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var errs []error
	for _, entry := range entries {
		if entry.Name() == stagedCookieName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// streamCodec maps yt-dlp's "none" placeholder to an absent stream
func streamCodec(codec string) string {
	if codec == "none" {
		return ""
	}
	return codec
}

// containerOf returns the lower-case extension of path without the dot
func containerOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func apiLabel(api string) string {
	if api == "" {
		return "default"
	}
	return api
}

// isMediaFile checks if a file is a video or audio file
func isMediaFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp4", ".m4v", ".mov", ".mkv", ".webm", ".avi", ".flv", ".ts", ".3gp", ".m4a", ".mp3", ".aac", ".opus", ".ogg":
		return true
	}
	return false
}

// formatResolution renders width x height for logs
func formatResolution(width, height int) string {
	if width == 0 || height == 0 {
		return "unknown"
	}
	return strconv.Itoa(width) + "x" + strconv.Itoa(height)
}
