package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https url", "https://example.com/video/abc", false},
		{"http url with query", "http://example.com/watch?v=1", false},
		{"x.com status", "https://x.com/user/status/123", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"relative path", "/video/abc", true},
		{"no scheme", "example.com/video", true},
		{"ftp scheme", "ftp://example.com/video.mp4", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"missing host", "https:///video", true},
		{"garbage", "ht!tp://%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://x.com/user/status/123", PlatformX},
		{"https://twitter.com/user/status/123", PlatformX},
		{"https://www.twitter.com/user/status/123", PlatformX},
		{"https://mobile.x.com/user/status/123", PlatformX},
		{"https://MOBILE.TWITTER.COM/user/status/123", PlatformX},
		{"https://example.com", PlatformGeneric},
		{"https://notx.com/user/status/123", PlatformGeneric},
		{"  https://x.com/user/status/123 ", PlatformX},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"plain", "My_Video-1", "My_Video-1.mp4"},
		{"spaces and punctuation", "Hello, World! (2024)", "Hello_World_2024.mp4"},
		{"path traversal", "../../etc/passwd", "etc_passwd.mp4"},
		{"quotes", `say "hi"`, "say_hi.mp4"},
		{"existing extension", "clip.MP4", "clip.mp4"},
		{"dotted title", "Dr. Who", "Dr._Who.mp4"},
		{"snake case", "snake_case_name", "snake_case_name.mp4"},
		{"underscore next to replaced run", "a_ b _c", "a_b_c.mp4"},
		{"edge underscores trimmed", "_clip_", "clip.mp4"},
		{"empty", "", "video.mp4"},
		{"only unsafe", "???", "video.mp4"},
		{"unicode", "日本語", "video.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.title))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	name := SanitizeFilename(strings.Repeat("a", 500))

	assert.Equal(t, maxFilenameBytes+len(".mp4"), len(name))
}

func TestArtifact_ReleaseOnce(t *testing.T) {
	calls := 0
	artifact := NewArtifact("/tmp/x.mp4", "x.mp4", 10, func() error {
		calls++
		return errors.New("cleanup failed")
	})

	require.Error(t, artifact.Release())
	require.Error(t, artifact.Release())
	assert.Equal(t, 1, calls)
	assert.Equal(t, ContentTypeMP4, artifact.ContentType)
}
