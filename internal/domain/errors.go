package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the public failure taxonomy of a download request
type ErrorKind string

const (
	KindBadRequest      ErrorKind = "bad_request"
	KindUnauthorized    ErrorKind = "unauthorized"
	KindNotFound        ErrorKind = "not_found"
	KindPrivate         ErrorKind = "private"
	KindGeometryOrAuth  ErrorKind = "geo_or_age_restricted"
	KindUnsupportedSite ErrorKind = "unsupported_site"
	KindNetworkError    ErrorKind = "network_error"
	KindTranscodeFailed ErrorKind = "transcode_failed"
	KindUnknown         ErrorKind = "unknown"
)

// ErrNoMediaFile is returned when the extractor exits cleanly without leaving a media file
var ErrNoMediaFile = errors.New("no media file produced")

// extractionPrecedence orders extraction failure kinds from most to least specific.
// When a failure matches several kinds (or several fallback attempts fail
// differently) the earliest kind in this list wins.
var extractionPrecedence = []ErrorKind{
	KindPrivate,
	KindGeometryOrAuth,
	KindNotFound,
	KindUnsupportedSite,
	KindNetworkError,
	KindUnknown,
}

// Rank returns the precedence of an extraction kind; lower is more specific.
// Kinds outside the extraction taxonomy rank after all of them.
func (k ErrorKind) Rank() int {
	for i, kind := range extractionPrecedence {
		if kind == k {
			return i
		}
	}
	return len(extractionPrecedence)
}

// MoreSpecific returns whichever of a and b takes precedence
func MoreSpecific(a, b ErrorKind) ErrorKind {
	if b.Rank() < a.Rank() {
		return b
	}
	return a
}

// HTTPStatus maps a kind to its HTTP response status
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindBadRequest, KindUnsupportedSite:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPrivate, KindGeometryOrAuth:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the stable caller-facing message for a kind
func (k ErrorKind) PublicMessage() string {
	switch k {
	case KindBadRequest:
		return "Invalid request: url must be an absolute http(s) URL"
	case KindUnauthorized:
		return "Missing or invalid authentication token"
	case KindNotFound:
		return "Video not found or unavailable"
	case KindPrivate:
		return "Video is private or requires login"
	case KindGeometryOrAuth:
		return "Video is age-restricted or not available in this region"
	case KindUnsupportedSite:
		return "Unsupported URL: no extractor recognizes this site"
	case KindNetworkError:
		return "Download failed: could not reach the source"
	case KindTranscodeFailed:
		return "Video processing failed"
	default:
		return "Download failed"
	}
}

// MediaError is a failure classified into the public taxonomy.
// Message is operator-facing detail; it is never sent to callers.
type MediaError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewMediaError creates a classified error
func NewMediaError(kind ErrorKind, message string, err error) *MediaError {
	return &MediaError{Kind: kind, Message: message, Err: err}
}

func (e *MediaError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind of err, defaulting to KindUnknown
func KindOf(err error) ErrorKind {
	var mediaErr *MediaError
	if errors.As(err, &mediaErr) {
		return mediaErr.Kind
	}
	return KindUnknown
}
