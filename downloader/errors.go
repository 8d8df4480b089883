package downloader

import (
	"errors"
	"fmt"
)

// ErrorType classifies why a download workflow ended without a file
type ErrorType int

const (
	// ErrorBadUpdateIdentity means the identity could not be resolved to an accepted URL
	ErrorBadUpdateIdentity ErrorType = iota
	// ErrorDownloadFailed means the resolved URL could not be streamed to storage
	ErrorDownloadFailed
	// ErrorCancelled means the caller or a progress callback stopped the workflow
	ErrorCancelled
	ErrorUnknown
)

func (et ErrorType) String() string {
	switch et {
	case ErrorBadUpdateIdentity:
		return "bad_update_identity"
	case ErrorDownloadFailed:
		return "download_failed"
	case ErrorCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DownloadError is the only error type returned by VersionDownloader.Download.
// A resolution failure never carries a Cause: the service gives no usable
// reason beyond "this identity has no accepted URL for this caller".
type DownloadError struct {
	Type    ErrorType      `json:"type"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (de *DownloadError) Error() string {
	if de.Cause != nil {
		return fmt.Sprintf("%s: %v", de.Message, de.Cause)
	}
	return de.Message
}

func (de *DownloadError) Unwrap() error {
	return de.Cause
}

// NewDownloadError creates a DownloadError without a cause
func NewDownloadError(errorType ErrorType, message string) *DownloadError {
	return &DownloadError{Type: errorType, Message: message}
}

// NewDownloadErrorWithCause creates a DownloadError wrapping cause
func NewDownloadErrorWithCause(errorType ErrorType, message string, cause error) *DownloadError {
	return &DownloadError{Type: errorType, Message: message, Cause: cause}
}

// WithContext attaches a diagnostic value such as the bytes already written
func (de *DownloadError) WithContext(key string, value any) *DownloadError {
	if de.Context == nil {
		de.Context = make(map[string]any)
	}
	de.Context[key] = value
	return de
}

func (de *DownloadError) IsType(errorType ErrorType) bool {
	return de.Type == errorType
}

// IsDownloadError reports whether err wraps a DownloadError of any of the
// given types, or of any type when none are given
func IsDownloadError(err error, errorType ...ErrorType) bool {
	var de *DownloadError
	if !errors.As(err, &de) {
		return false
	}
	if len(errorType) == 0 {
		return true
	}
	for _, et := range errorType {
		if de.IsType(et) {
			return true
		}
	}
	return false
}

func IsBadUpdateIdentity(err error) bool {
	return IsDownloadError(err, ErrorBadUpdateIdentity)
}

func IsCancelled(err error) bool {
	return IsDownloadError(err, ErrorCancelled)
}
