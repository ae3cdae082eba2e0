package infrastructure

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/video-dl-api/internal/domain"
)

// stagedCookieName is the per-request copy handed to yt-dlp, which rewrites the jar it is given
const stagedCookieName = "cookies.txt"

// CredentialStore resolves the optional cookie file and per-site extractor options
type CredentialStore struct {
	cookieFile      string
	twitterAPIOrder []string
}

// NewCredentialStore creates a credential store from extractor configuration
func NewCredentialStore(config *domain.ExtractorConfig) *CredentialStore {
	return &CredentialStore{
		cookieFile:      config.CookieFile,
		twitterAPIOrder: cleanList(config.TwitterAPIOrder),
	}
}

// CookieFile returns the configured cookie file if it currently exists and is non-empty.
// The file is checked on every call so operators can rotate it without a restart.
func (s *CredentialStore) CookieFile() (string, bool) {
	if s.cookieFile == "" {
		return "", false
	}
	info, err := os.Stat(s.cookieFile)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return "", false
	}
	return s.cookieFile, true
}

// StageCookies copies the cookie file into dir and returns the copy's path.
// ok is false when no usable cookie file is configured.
func (s *CredentialStore) StageCookies(dir string) (path string, ok bool, err error) {
	src, ok := s.CookieFile()
	if !ok {
		return "", false, nil
	}

	dst := filepath.Join(dir, stagedCookieName)
	if err := copyFile(src, dst); err != nil {
		return "", false, fmt.Errorf("failed to stage cookie file: %w", err)
	}
	return dst, true, nil
}

// TwitterAPIOrder returns the X/Twitter backends to try, in order
func (s *CredentialStore) TwitterAPIOrder() []string {
	if len(s.twitterAPIOrder) == 0 {
		return append([]string(nil), domain.DefaultTwitterAPIOrder...)
	}
	return append([]string(nil), s.twitterAPIOrder...)
}

// cleanList trims entries and drops empties and duplicates, keeping order
func cleanList(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// copyFile copies src to dst with 0600 permissions
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
