package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CompatibilityProfile is the container/codec/geometry combination guaranteed for output
type CompatibilityProfile struct {
	Container    string
	VideoCodec   string
	AudioCodec   string
	SquarePixels bool
}

// QuickTimeProfile plays natively on Apple devices
var QuickTimeProfile = CompatibilityProfile{
	Container:    "mp4",
	VideoCodec:   "h264",
	AudioCodec:   "aac",
	SquarePixels: true,
}

// NormalizationDecision says which streams have to be re-encoded.
// Remux is set whenever any work is needed, since output is always rewritten into the target container.
type NormalizationDecision struct {
	TranscodeVideo bool
	TranscodeAudio bool
	Remux          bool
	Reasons        []string
}

// NeedsWork reports whether the transcoding tool has to run at all
func (d NormalizationDecision) NeedsWork() bool {
	return d.TranscodeVideo || d.TranscodeAudio || d.Remux
}

// Mode names the kind of work for logs and metrics
func (d NormalizationDecision) Mode() string {
	switch {
	case d.TranscodeVideo || d.TranscodeAudio:
		return "transcode"
	case d.Remux:
		return "remux"
	default:
		return "passthrough"
	}
}

// Decide computes the per-stream decision for a media file
func (p CompatibilityProfile) Decide(m *MediaFile) NormalizationDecision {
	var d NormalizationDecision

	if m.VideoCodec != "" && !codecMatches(m.VideoCodec, p.VideoCodec) {
		d.TranscodeVideo = true
		d.Reasons = append(d.Reasons, fmt.Sprintf("video codec %s", m.VideoCodec))
	}
	if p.SquarePixels && m.VideoCodec != "" && !IsSquareSAR(m.SampleAspectRatio) {
		d.TranscodeVideo = true
		d.Reasons = append(d.Reasons, fmt.Sprintf("non-square SAR %s", m.SampleAspectRatio))
	}
	if m.AudioCodec != "" && !codecMatches(m.AudioCodec, p.AudioCodec) {
		d.TranscodeAudio = true
		d.Reasons = append(d.Reasons, fmt.Sprintf("audio codec %s", m.AudioCodec))
	}
	if !strings.EqualFold(m.Container, p.Container) {
		d.Reasons = append(d.Reasons, fmt.Sprintf("container %s", m.Container))
		d.Remux = true
	}
	if d.TranscodeVideo || d.TranscodeAudio {
		d.Remux = true
	}

	return d
}

// codecAliases maps the extractor's codec tags onto ffprobe codec names
var codecAliases = map[string]string{
	"avc1": "h264",
	"avc3": "h264",
	"avc":  "h264",
	"mp4a": "aac",
	"hvc1": "hevc",
	"hev1": "hevc",
	"vp09": "vp9",
	"av01": "av1",
}

// NormalizeCodec reduces codec strings such as "avc1.64001F" or "mp4a.40.2" to ffprobe names
func NormalizeCodec(codec string) string {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if i := strings.IndexByte(codec, '.'); i > 0 {
		codec = codec[:i]
	}
	if alias, ok := codecAliases[codec]; ok {
		return alias
	}
	return codec
}

func codecMatches(actual, want string) bool {
	return NormalizeCodec(actual) == NormalizeCodec(want)
}

// IsSquareSAR reports whether a sample aspect ratio such as "1:1" or "64:45" is square.
// Unknown or unparsable values are treated as square.
func IsSquareSAR(sar string) bool {
	switch sar {
	case "", "N/A", "0:1", "1:1":
		return true
	}
	parts := strings.Split(sar, ":")
	if len(parts) != 2 {
		return true
	}
	num, err := strconv.Atoi(parts[0])
	if err != nil {
		return true
	}
	den, err := strconv.Atoi(parts[1])
	if err != nil || den <= 0 || num <= 0 {
		return true
	}
	return num == den
}
