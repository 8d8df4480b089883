package downloader

import (
	"context"
	"time"

	"mcbedrock-downloader/transport"
)

// Transport is the network side of a download workflow. *transport.Session implements it.
type Transport interface {
	// PostXML posts a protocol document and returns the response body
	PostXML(ctx context.Context, url string, body []byte) ([]byte, error)

	// StreamGet fetches url, handing each chunk to onChunk in order
	StreamGet(ctx context.Context, url string, onChunk transport.ChunkHandler) error

	// Close releases the connections held by the transport
	Close() error
}

// Downloader defines the contract for downloading a package by update identity
type Downloader interface {
	// Download resolves identity and streams the package to destination
	Download(ctx context.Context, identity UpdateIdentity, destination string, callbacks Callbacks) (*DownloadResult, error)

	// Cancel cancels any ongoing download operation
	Cancel() error

	// GetStatus returns the current download status
	GetStatus() DownloadStatus
}

// ProgressReporter defines the contract for reporting progress
type ProgressReporter interface {
	// StartTracking begins progress tracking for the named package
	StartTracking(ctx context.Context, name string) error

	// UpdateProgress reports progress for the current phase
	UpdateProgress(phase Phase, progress Progress) error

	// ReportPhaseChange reports a transition between phases
	ReportPhaseChange(oldPhase, newPhase Phase) error

	// ReportError reports an error that occurred during processing
	ReportError(err error) error

	// ReportComplete reports successful completion with summary information
	ReportComplete(duration time.Duration, filePath string) error

	// Stop stops progress tracking and cleans up resources
	Stop()
}
