package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/video-dl-api/internal/domain"
	"github.com/yourusername/video-dl-api/internal/infrastructure"
	"go.uber.org/zap"
)

const testToken = "test-token"

// mockExtractor writes a fake media file into the workspace or fails with err
type mockExtractor struct {
	mu    sync.Mutex
	title string
	err   error
	dirs  []string
	urls  []string
}

func (m *mockExtractor) Extract(ctx context.Context, url string, outputDir string) (*domain.MediaFile, error) {
	m.mu.Lock()
	m.dirs = append(m.dirs, outputDir)
	m.urls = append(m.urls, url)
	m.mu.Unlock()

	path := filepath.Join(outputDir, "media.webm")
	if err := os.WriteFile(path, []byte("raw-media"), 0644); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	return &domain.MediaFile{Path: path, Title: m.title, Container: "webm", VideoCodec: "vp9", AudioCodec: "opus"}, nil
}

func (m *mockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dirs)
}

// mockNormalizer writes normalized.mp4 next to the input or fails with err
type mockNormalizer struct {
	err   error
	calls int
}

func (m *mockNormalizer) Normalize(ctx context.Context, input *domain.MediaFile, workDir string) (*domain.MediaFile, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	path := filepath.Join(workDir, "normalized.mp4")
	if err := os.WriteFile(path, []byte("normalized-media"), 0644); err != nil {
		return nil, err
	}
	out := *input
	out.Path = path
	out.Container = "mp4"
	return &out, nil
}

func newTestService(t *testing.T, extractor domain.Extractor, normalizer domain.Normalizer) (*DownloadService, string) {
	t.Helper()
	gate, err := NewAuthGate([]string{testToken})
	require.NoError(t, err)
	baseDir := t.TempDir()
	return NewDownloadService(gate, extractor, normalizer, infrastructure.NewWorkspaceFactory(baseDir), zap.NewNop()), baseDir
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestDownload_Success(t *testing.T) {
	extractor := &mockExtractor{title: "My Clip: Part 1"}
	service, baseDir := newTestService(t, extractor, &mockNormalizer{})

	artifact, err := service.Download(context.Background(), "Bearer "+testToken, "https://x.com/user/status/123")
	require.NoError(t, err)

	assert.Equal(t, "My_Clip_Part_1.mp4", artifact.Filename)
	assert.Equal(t, domain.ContentTypeMP4, artifact.ContentType)
	assert.Equal(t, int64(len("normalized-media")), artifact.Size)
	assert.FileExists(t, artifact.Path)
	assert.Len(t, leftovers(t, baseDir), 1)

	require.NoError(t, artifact.Release())
	assert.NoFileExists(t, artifact.Path)
	assert.Empty(t, leftovers(t, baseDir))

	// second release is a no-op
	assert.NoError(t, artifact.Release())
}

func TestDownload_PaddedURLIsCanonicalized(t *testing.T) {
	extractor := &mockExtractor{title: "clip"}
	service, _ := newTestService(t, extractor, &mockNormalizer{})

	artifact, err := service.Download(context.Background(), "Bearer "+testToken, " https://x.com/u/status/1\n")
	require.NoError(t, err)
	defer artifact.Release()

	require.Len(t, extractor.urls, 1)
	assert.Equal(t, "https://x.com/u/status/1", extractor.urls[0])
	assert.Equal(t, domain.PlatformX, domain.DetectPlatform(extractor.urls[0]))
}

// blockingExtractor leaves a partial file behind and waits for cancellation
type blockingExtractor struct {
	started chan struct{}
}

func (b *blockingExtractor) Extract(ctx context.Context, url string, outputDir string) (*domain.MediaFile, error) {
	if err := os.WriteFile(filepath.Join(outputDir, "media.mp4.part"), []byte("partial"), 0644); err != nil {
		return nil, err
	}
	close(b.started)
	<-ctx.Done()
	return nil, domain.NewMediaError(domain.KindUnknown, "extraction cancelled", ctx.Err())
}

func TestDownload_CancelledDuringExtractCleansUp(t *testing.T) {
	extractor := &blockingExtractor{started: make(chan struct{})}
	normalizer := &mockNormalizer{}
	service, baseDir := newTestService(t, extractor, normalizer)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-extractor.started
		cancel()
	}()

	_, err := service.Download(ctx, "Bearer "+testToken, "https://example.com/v")
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, normalizer.calls)
	assert.Empty(t, leftovers(t, baseDir))
}

func TestDownload_UnauthorizedSkipsExtraction(t *testing.T) {
	extractor := &mockExtractor{}
	service, baseDir := newTestService(t, extractor, &mockNormalizer{})

	for _, header := range []string{"", "Bearer wrong", "bearer " + testToken} {
		_, err := service.Download(context.Background(), header, "https://x.com/a/status/1")
		require.Error(t, err)
		assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	}

	assert.Zero(t, extractor.Calls())
	assert.Empty(t, leftovers(t, baseDir))
}

func TestDownload_InvalidURLSkipsExtraction(t *testing.T) {
	extractor := &mockExtractor{}
	service, baseDir := newTestService(t, extractor, &mockNormalizer{})

	for _, raw := range []string{"", "not a url", "ftp://example.com/file", "/relative/path", "https://"} {
		_, err := service.Download(context.Background(), "Bearer "+testToken, raw)
		require.Error(t, err, raw)
		assert.Equal(t, domain.KindBadRequest, domain.KindOf(err), raw)
	}

	assert.Zero(t, extractor.Calls())
	assert.Empty(t, leftovers(t, baseDir))
}

func TestDownload_ExtractionFailureCleansUp(t *testing.T) {
	extractor := &mockExtractor{err: domain.NewMediaError(domain.KindPrivate, "login required", nil)}
	normalizer := &mockNormalizer{}
	service, baseDir := newTestService(t, extractor, normalizer)

	_, err := service.Download(context.Background(), "Bearer "+testToken, "https://x.com/a/status/1")
	require.Error(t, err)

	assert.Equal(t, domain.KindPrivate, domain.KindOf(err))
	assert.Zero(t, normalizer.calls)
	assert.Empty(t, leftovers(t, baseDir))
}

func TestDownload_UnclassifiedExtractorErrorIsUnknown(t *testing.T) {
	extractor := &mockExtractor{err: errors.New("boom")}
	service, _ := newTestService(t, extractor, &mockNormalizer{})

	_, err := service.Download(context.Background(), "Bearer "+testToken, "https://example.com/v")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
}

func TestDownload_NormalizationFailureCleansUp(t *testing.T) {
	normalizer := &mockNormalizer{err: errors.New("ffmpeg exploded")}
	service, baseDir := newTestService(t, &mockExtractor{title: "clip"}, normalizer)

	_, err := service.Download(context.Background(), "Bearer "+testToken, "https://example.com/v")
	require.Error(t, err)

	assert.Equal(t, domain.KindTranscodeFailed, domain.KindOf(err))
	assert.Empty(t, leftovers(t, baseDir))
}

func TestDownload_RepeatedRequestsAreIndependent(t *testing.T) {
	extractor := &mockExtractor{title: "same"}
	service, baseDir := newTestService(t, extractor, &mockNormalizer{})

	first, err := service.Download(context.Background(), "Bearer "+testToken, "https://example.com/v")
	require.NoError(t, err)
	second, err := service.Download(context.Background(), "Bearer "+testToken, "https://example.com/v")
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.Len(t, leftovers(t, baseDir), 2)
	assert.Equal(t, first.Filename, second.Filename)

	require.NoError(t, first.Release())
	require.NoError(t, second.Release())
	assert.Empty(t, leftovers(t, baseDir))
}

func TestDownload_ConcurrentRequestsUseDistinctWorkspaces(t *testing.T) {
	extractor := &mockExtractor{title: "clip"}
	gate, err := NewAuthGate([]string{testToken})
	require.NoError(t, err)
	baseDir := t.TempDir()
	// the normalizer mock is not goroutine safe, so each call gets its own instance
	service := NewDownloadService(gate, extractor, normalizerFunc(func() domain.Normalizer { return &mockNormalizer{} }), infrastructure.NewWorkspaceFactory(baseDir), zap.NewNop())

	var wg sync.WaitGroup
	artifacts := make([]*domain.Artifact, 8)
	for i := range artifacts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			artifact, err := service.Download(context.Background(), "Bearer "+testToken, "https://example.com/v")
			assert.NoError(t, err)
			artifacts[i] = artifact
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, artifact := range artifacts {
		require.NotNil(t, artifact)
		assert.False(t, seen[artifact.Path])
		seen[artifact.Path] = true
		require.NoError(t, artifact.Release())
	}
	assert.Empty(t, leftovers(t, baseDir))
}

// normalizerFunc builds a fresh normalizer per call
type normalizerFunc func() domain.Normalizer

func (f normalizerFunc) Normalize(ctx context.Context, input *domain.MediaFile, workDir string) (*domain.MediaFile, error) {
	return f().Normalize(ctx, input, workDir)
}
