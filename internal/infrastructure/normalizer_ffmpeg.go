package infrastructure

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/video-dl-api/internal/domain"
	"github.com/yourusername/video-dl-api/internal/metrics"
	"go.uber.org/zap"
)

// normalizedName is the ffmpeg output file inside the request workspace
const normalizedName = "normalized.mp4"

// sarFixFilter scales to square pixels with even dimensions, as libx264 requires
const sarFixFilter = "scale='trunc(iw*sar/2)*2:trunc(ih/2)*2',setsar=1"

// FFmpegNormalizer implements domain.Normalizer with ffprobe + ffmpeg
type FFmpegNormalizer struct {
	config  *domain.TranscoderConfig
	profile domain.CompatibilityProfile
	prober  domain.Prober
	runner  CommandRunner
	logger  *zap.Logger
}

// NewFFmpegNormalizer creates a normalizer targeting profile
func NewFFmpegNormalizer(config *domain.TranscoderConfig, profile domain.CompatibilityProfile, prober domain.Prober, runner CommandRunner, logger *zap.Logger) *FFmpegNormalizer {
	return &FFmpegNormalizer{
		config:  config,
		profile: profile,
		prober:  prober,
		runner:  runner,
		logger:  logger,
	}
}

// Normalize passes compliant files through untouched and otherwise runs ffmpeg once,
// re-encoding only the streams that do not match the profile
func (n *FFmpegNormalizer) Normalize(ctx context.Context, input *domain.MediaFile, workDir string) (*domain.MediaFile, error) {
	media := n.inspect(ctx, input)
	decision := n.profile.Decide(media)
	metrics.NormalizationsTotal.WithLabelValues(decision.Mode()).Inc()

	if !decision.NeedsWork() {
		n.logger.Info("File already compatible, passing through", zap.String("file", input.Path))
		return input, nil
	}

	n.logger.Info("Normalizing",
		zap.String("file", input.Path),
		zap.String("mode", decision.Mode()),
		zap.Strings("reasons", decision.Reasons))

	output := filepath.Join(workDir, normalizedName)
	args := n.buildArgs(input.Path, output, decision)

	if n.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := n.runner.Run(ctx, n.config.FFmpegBinary, args...)
	metrics.StageDuration.WithLabelValues(decision.Mode()).Observe(time.Since(start).Seconds())
	if err != nil {
		os.Remove(output)
		detail := "ffmpeg failed"
		if result != nil && len(result.Stderr) > 0 {
			detail = tail(result.Stderr, 500)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "ffmpeg timed out after " + n.config.Timeout.String()
		}
		return nil, domain.NewMediaError(domain.KindTranscodeFailed, detail, err)
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		os.Remove(output)
		return nil, domain.NewMediaError(domain.KindTranscodeFailed, "ffmpeg produced no output", err)
	}

	normalized := &domain.MediaFile{
		Path:              output,
		Title:             input.Title,
		Container:         n.profile.Container,
		VideoCodec:        media.VideoCodec,
		AudioCodec:        media.AudioCodec,
		Width:             media.Width,
		Height:            media.Height,
		SampleAspectRatio: media.SampleAspectRatio,
	}
	if decision.TranscodeVideo {
		normalized.VideoCodec = n.profile.VideoCodec
		normalized.SampleAspectRatio = "1:1"
	}
	if decision.TranscodeAudio {
		normalized.AudioCodec = n.profile.AudioCodec
	}

	n.logger.Info("Normalized",
		zap.String("file", output),
		zap.Int64("size", info.Size()),
		zap.Duration("elapsed", time.Since(start)))
	return normalized, nil
}

// inspect probes the file, falling back to extractor metadata when probing fails
func (n *FFmpegNormalizer) inspect(ctx context.Context, input *domain.MediaFile) *domain.MediaFile {
	if n.prober == nil {
		return input
	}

	probed, err := n.prober.Probe(ctx, input.Path)
	if err != nil {
		n.logger.Warn("Probe failed, using extractor metadata",
			zap.String("file", input.Path),
			zap.Error(err))
		return input
	}

	probed.Title = input.Title
	return probed
}

// buildArgs builds the ffmpeg argument list for decision
func (n *FFmpegNormalizer) buildArgs(input, output string, decision domain.NormalizationDecision) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", input,
		"-map", "0:v:0?",
		"-map", "0:a:0?",
	}

	if decision.TranscodeVideo {
		args = append(args,
			"-vf", sarFixFilter,
			"-c:v", "libx264",
			"-preset", n.preset(),
			"-crf", strconv.Itoa(n.crf()),
			"-pix_fmt", "yuv420p",
		)
	} else {
		args = append(args, "-c:v", "copy")
	}

	if decision.TranscodeAudio {
		args = append(args, "-c:a", "aac", "-b:a", n.audioBitrate())
	} else {
		args = append(args, "-c:a", "copy")
	}

	return append(args,
		"-movflags", "+faststart",
		"-brand", "mp42",
		"-f", "mp4",
		output,
	)
}

func (n *FFmpegNormalizer) preset() string {
	if strings.TrimSpace(n.config.Preset) == "" {
		return "fast"
	}
	return n.config.Preset
}

func (n *FFmpegNormalizer) crf() int {
	if n.config.CRF <= 0 {
		return 23
	}
	return n.config.CRF
}

func (n *FFmpegNormalizer) audioBitrate() string {
	if n.config.AudioBitrate == "" {
		return "128k"
	}
	return n.config.AudioBitrate
}
