package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuickTimeProfile_Decide(t *testing.T) {
	tests := []struct {
		name      string
		media     MediaFile
		video     bool
		audio     bool
		remux     bool
		mode      string
		needsWork bool
	}{
		{
			name:  "compliant passthrough",
			media: MediaFile{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", SampleAspectRatio: "1:1"},
			mode:  "passthrough",
		},
		{
			name:  "extractor codec tags",
			media: MediaFile{Container: "mp4", VideoCodec: "avc1.64001F", AudioCodec: "mp4a.40.2"},
			mode:  "passthrough",
		},
		{
			name:      "container only",
			media:     MediaFile{Container: "mkv", VideoCodec: "h264", AudioCodec: "aac"},
			remux:     true,
			mode:      "remux",
			needsWork: true,
		},
		{
			name:      "vp9 opus webm",
			media:     MediaFile{Container: "webm", VideoCodec: "vp9", AudioCodec: "opus"},
			video:     true,
			audio:     true,
			remux:     true,
			mode:      "transcode",
			needsWork: true,
		},
		{
			name:      "audio only mismatch",
			media:     MediaFile{Container: "mp4", VideoCodec: "h264", AudioCodec: "opus"},
			audio:     true,
			remux:     true,
			mode:      "transcode",
			needsWork: true,
		},
		{
			name:      "non-square pixels",
			media:     MediaFile{Container: "mp4", VideoCodec: "h264", AudioCodec: "aac", SampleAspectRatio: "64:45"},
			video:     true,
			remux:     true,
			mode:      "transcode",
			needsWork: true,
		},
		{
			name:  "no audio stream",
			media: MediaFile{Container: "mp4", VideoCodec: "h264"},
			mode:  "passthrough",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := QuickTimeProfile.Decide(&tt.media)
			assert.Equal(t, tt.video, d.TranscodeVideo)
			assert.Equal(t, tt.audio, d.TranscodeAudio)
			assert.Equal(t, tt.remux, d.Remux)
			assert.Equal(t, tt.mode, d.Mode())
			assert.Equal(t, tt.needsWork, d.NeedsWork())
			if tt.needsWork {
				assert.NotEmpty(t, d.Reasons)
			}
		})
	}
}

func TestNormalizeCodec(t *testing.T) {
	assert.Equal(t, "h264", NormalizeCodec("avc1.640028"))
	assert.Equal(t, "h264", NormalizeCodec("H264"))
	assert.Equal(t, "aac", NormalizeCodec("mp4a.40.2"))
	assert.Equal(t, "vp9", NormalizeCodec("vp09.00.40.08"))
	assert.Equal(t, "hevc", NormalizeCodec(" hvc1.1.6.L93 "))
	assert.Equal(t, "opus", NormalizeCodec("opus"))
}

func TestIsSquareSAR(t *testing.T) {
	for _, sar := range []string{"", "N/A", "0:1", "1:1", "2:2", "garbage", "1:0", "a:b"} {
		assert.True(t, IsSquareSAR(sar), sar)
	}
	for _, sar := range []string{"64:45", "4:3", "40:33"} {
		assert.False(t, IsSquareSAR(sar), sar)
	}
}
