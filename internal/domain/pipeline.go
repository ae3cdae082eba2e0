package domain

import "context"

// Extractor resolves a source URL into a media file inside outputDir
type Extractor interface {
	// Extract runs the extraction tool and returns the downloaded file.
	// Failures are *MediaError values.
	Extract(ctx context.Context, url string, outputDir string) (*MediaFile, error)
}

// Normalizer makes a downloaded file satisfy the compatibility profile
type Normalizer interface {
	// Normalize returns input unchanged when it already complies, otherwise a new
	// file written inside workDir. Failures are *MediaError values of KindTranscodeFailed.
	Normalize(ctx context.Context, input *MediaFile, workDir string) (*MediaFile, error)
}

// Prober reads stream metadata from a media file
type Prober interface {
	Probe(ctx context.Context, path string) (*MediaFile, error)
}
