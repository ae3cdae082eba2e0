package domain

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Platform represents the source platform of a URL
type Platform string

const (
	PlatformX       Platform = "x" // X/Twitter
	PlatformGeneric Platform = "generic"
)

// ContentTypeMP4 is the content type of every successful response
const ContentTypeMP4 = "video/mp4"

// DownloadRequest is the body of POST /download
type DownloadRequest struct {
	URL string `json:"url"`
}

// MediaFile describes a media file on disk and its stream metadata
type MediaFile struct {
	Path              string
	Title             string
	Container         string // file extension without the dot, lower case
	VideoCodec        string
	AudioCodec        string
	Width             int
	Height            int
	SampleAspectRatio string
}

// Artifact is the file handed to the HTTP layer for streaming.
// Release removes every temporary file produced for the request.
type Artifact struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64

	release func() error
	once    sync.Once
	err     error
}

// NewArtifact creates an artifact that runs release when it is released
func NewArtifact(path, filename string, size int64, release func() error) *Artifact {
	return &Artifact{
		Path:        path,
		Filename:    filename,
		ContentType: ContentTypeMP4,
		Size:        size,
		release:     release,
	}
}

// Release deletes the artifact's temporary files. Safe to call more than once.
func (a *Artifact) Release() error {
	a.once.Do(func() {
		if a.release != nil {
			a.err = a.release()
		}
	})
	return a.err
}

// ValidateURL checks that raw is an absolute http(s) URL with a host
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("url is not absolute: %s", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme: %s", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url has no host: %s", raw)
	}
	return u, nil
}

var twitterHosts = map[string]bool{
	"twitter.com":        true,
	"x.com":              true,
	"mobile.twitter.com": true,
	"mobile.x.com":       true,
}

// DetectPlatform detects the platform from a URL
func DetectPlatform(raw string) Platform {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PlatformGeneric
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if twitterHosts[host] {
		return PlatformX
	}
	return PlatformGeneric
}

const (
	fallbackFilename = "video"
	maxFilenameBytes = 120
)

// SanitizeFilename turns a source title into a path-safe base name ending in .mp4.
// Allowed characters are [A-Za-z0-9._-]; runs of anything else become one underscore.
func SanitizeFilename(title string) string {
	if strings.HasSuffix(strings.ToLower(title), ".mp4") {
		title = title[:len(title)-len(".mp4")]
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			// kept, but merged with any adjacent replacement
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	name := b.String()
	if len(name) > maxFilenameBytes {
		name = name[:maxFilenameBytes]
	}
	name = strings.Trim(name, "._-")
	if name == "" {
		name = fallbackFilename
	}
	return name + ".mp4"
}
