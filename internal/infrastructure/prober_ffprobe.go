package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/video-dl-api/internal/domain"
	"go.uber.org/zap"
)

// FFprobeProber implements domain.Prober with the ffprobe executable
type FFprobeProber struct {
	config *domain.TranscoderConfig
	runner CommandRunner
	logger *zap.Logger
}

// ProbeResult contains the ffprobe fields we read
type ProbeResult struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType         string `json:"codec_type"`
		CodecName         string `json:"codec_name"`
		Width             int    `json:"width"`
		Height            int    `json:"height"`
		SampleAspectRatio string `json:"sample_aspect_ratio"`
	} `json:"streams"`
}

// NewFFprobeProber creates a new ffprobe-backed prober
func NewFFprobeProber(config *domain.TranscoderConfig, runner CommandRunner, logger *zap.Logger) *FFprobeProber {
	return &FFprobeProber{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Probe reads the first video and first audio stream of path
func (p *FFprobeProber) Probe(ctx context.Context, path string) (*domain.MediaFile, error) {
	if p.config.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ProbeTimeout)
		defer cancel()
	}

	result, err := p.runner.Run(ctx, p.config.FFprobeBinary,
		"-v", "error",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path,
	)
	if err != nil {
		detail := ""
		if result != nil {
			detail = tail(result.Stderr, 500)
		}
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, detail)
	}

	return parseProbeOutput(path, result.Stdout)
}

// parseProbeOutput converts ffprobe JSON into a MediaFile
func parseProbeOutput(path string, output []byte) (*domain.MediaFile, error) {
	var probe ProbeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	media := &domain.MediaFile{
		Path:      path,
		Container: containerOf(path),
	}

	var haveVideo, haveAudio bool
	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			if haveVideo {
				continue
			}
			haveVideo = true
			media.VideoCodec = stream.CodecName
			media.Width = stream.Width
			media.Height = stream.Height
			media.SampleAspectRatio = stream.SampleAspectRatio
		case "audio":
			if haveAudio {
				continue
			}
			haveAudio = true
			media.AudioCodec = stream.CodecName
		}
	}

	if !haveVideo && !haveAudio {
		return nil, fmt.Errorf("no audio or video streams in %s", path)
	}
	return media, nil
}
