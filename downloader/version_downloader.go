package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcbedrock-downloader/transport"
	"mcbedrock-downloader/wuprotocol"
)

// AcceptedURLPrefix is the only content-delivery authority downloads are taken from
const AcceptedURLPrefix = "http://tlu.dl.delivery.mp.microsoft.com/"

// errAborted stops the stream when a progress callback or Cancel asks for it
var errAborted = errors.New("transfer aborted")

var _ Downloader = (*VersionDownloader)(nil)

// Options configures a VersionDownloader
type Options struct {
	// Transport overrides the session created by NewVersionDownloader
	Transport Transport
	// Endpoint overrides the secured protocol endpoint
	Endpoint string
	// RequestTimeout bounds the resolution request of the default session
	RequestTimeout time.Duration
	// StreamTimeout bounds the transfer of the default session
	StreamTimeout time.Duration
	Logger        *zap.Logger
}

// VersionDownloader implements the Downloader interface. It owns one
// transport session from construction until Close.
type VersionDownloader struct {
	protocol  *wuprotocol.Protocol
	transport Transport
	endpoint  string
	logger    *zap.Logger

	// State management
	mu         sync.RWMutex
	status     DownloadStatus
	cancelFunc context.CancelFunc
	isActive   bool
}

// NewVersionDownloader creates a downloader. Callers must Close it to release
// the transport session.
func NewVersionDownloader(opts Options) *VersionDownloader {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	protocol := wuprotocol.New()

	t := opts.Transport
	if t == nil {
		t = transport.NewSession(transport.Config{
			RequestTimeout: opts.RequestTimeout,
			StreamTimeout:  opts.StreamTimeout,
			Logger:         logger.Named("transport"),
		})
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = protocol.DownloadURL()
	}

	return &VersionDownloader{
		protocol:  protocol,
		transport: t,
		endpoint:  endpoint,
		logger:    logger,
		status:    DownloadStatus{Phase: PhaseIdle},
	}
}

// Close releases the transport session
func (vd *VersionDownloader) Close() error {
	return vd.transport.Close()
}

// EnableUserAuthorization attaches an MSA user token to every request. It can
// be called once per downloader.
func (vd *VersionDownloader) EnableUserAuthorization(token string) error {
	return vd.protocol.SetMSAUserToken(token)
}

// SelectDownloadURL returns the first candidate served by AcceptedURLPrefix
func SelectDownloadURL(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if strings.HasPrefix(candidate, AcceptedURLPrefix) {
			return candidate, true
		}
	}
	return "", false
}

// ResolveURL posts one GetExtendedUpdateInfo2 request and returns the accepted
// download URL. Every failure, including an expired deadline, is reported as
// ErrorBadUpdateIdentity except a cancelled context, which is ErrorCancelled.
func (vd *VersionDownloader) ResolveURL(ctx context.Context, identity UpdateIdentity) (string, error) {
	request := vd.protocol.BuildDownloadRequest(identity.UpdateID, identity.RevisionNumber)

	vd.logger.Debug("requesting download URL",
		zap.String("update_id", identity.UpdateID),
		zap.String("revision", identity.RevisionNumber),
		zap.String("endpoint", vd.endpoint))

	response, err := vd.transport.PostXML(ctx, vd.endpoint, []byte(request))
	if err != nil {
		if cancelled(ctx) {
			return "", NewDownloadErrorWithCause(ErrorCancelled, "resolution cancelled", ctx.Err())
		}
		vd.logger.Warn("error getting download URL", zap.Error(err))
		return "", NewDownloadError(ErrorBadUpdateIdentity, "unable to get download URL").
			WithContext("update_id", identity.UpdateID)
	}

	candidates, err := wuprotocol.ParseDownloadResponse(string(response))
	if err != nil {
		vd.logger.Debug("response is not well-formed XML", zap.Error(err))
	}

	url, ok := SelectDownloadURL(candidates)
	if !ok {
		return "", NewDownloadError(ErrorBadUpdateIdentity, "unable to get download URL").
			WithContext("update_id", identity.UpdateID).
			WithContext("candidates", len(candidates))
	}
	return url, nil
}

// Download implements the Downloader interface
func (vd *VersionDownloader) Download(ctx context.Context, identity UpdateIdentity, destination string, callbacks Callbacks) (*DownloadResult, error) {
	vd.mu.Lock()
	if vd.isActive {
		vd.mu.Unlock()
		return nil, NewDownloadError(ErrorUnknown, "download already in progress")
	}

	// Create cancellable context
	downloadCtx, cancel := context.WithCancel(ctx)
	vd.cancelFunc = cancel
	vd.isActive = true
	vd.status = DownloadStatus{
		Phase:       PhaseIdle,
		StartTime:   time.Now(),
		Identity:    identity,
		Destination: destination,
		IsActive:    true,
	}
	vd.mu.Unlock()

	defer func() {
		cancel()
		vd.mu.Lock()
		vd.isActive = false
		vd.status.IsActive = false
		vd.cancelFunc = nil
		vd.mu.Unlock()
	}()

	vd.logger.Info("starting download", zap.String("update_id", identity.UpdateID))

	// Phase 1: resolve the identity to an accepted URL
	vd.updatePhase(PhaseResolving, callbacks)

	url, err := vd.ResolveURL(downloadCtx, identity)
	if err != nil {
		return nil, vd.handleError(err, callbacks)
	}
	vd.logger.Info("resolved download link", zap.String("url", url))

	if cancelled(downloadCtx) {
		return nil, vd.handleError(NewDownloadErrorWithCause(ErrorCancelled, "download cancelled", downloadCtx.Err()), callbacks)
	}

	// Phase 2: stream to the destination
	vd.updatePhase(PhaseDownloading, callbacks)

	size, err := vd.downloadFile(downloadCtx, url, destination, callbacks)
	if err != nil {
		return nil, vd.handleError(err, callbacks)
	}

	vd.mu.RLock()
	startTime := vd.status.StartTime
	vd.mu.RUnlock()

	result := &DownloadResult{
		FilePath: destination,
		URL:      url,
		Identity: identity,
		FileSize: size,
		Duration: time.Since(startTime),
	}

	vd.updatePhase(PhaseCompleted, callbacks)
	vd.logger.Info("download completed",
		zap.String("destination", destination),
		zap.Int64("bytes", size),
		zap.Duration("duration", result.Duration))

	if callbacks.OnComplete != nil {
		callbacks.OnComplete(result)
	}

	return result, nil
}

// downloadFile streams url into destination and returns the bytes written.
// On cancellation the partial file is left in place.
func (vd *VersionDownloader) downloadFile(ctx context.Context, url, destination string, callbacks Callbacks) (int64, error) {
	file, err := os.Create(destination)
	if err != nil {
		return 0, NewDownloadErrorWithCause(ErrorDownloadFailed, "failed to create destination file", err).
			WithContext("destination", destination)
	}

	var written int64
	streamErr := vd.transport.StreamGet(ctx, url, func(chunk []byte, downloaded, total int64) error {
		if _, err := file.Write(chunk); err != nil {
			return fmt.Errorf("failed to write %s: %w", destination, err)
		}
		written = downloaded
		vd.recordProgress(downloaded, total)

		if callbacks.OnProgress != nil && callbacks.OnProgress(downloaded, total) == Abort {
			return errAborted
		}
		if ctx.Err() != nil {
			return errAborted
		}
		return nil
	})
	closeErr := file.Close()

	switch {
	case streamErr != nil && cancelled(ctx):
		return written, NewDownloadErrorWithCause(ErrorCancelled, "download cancelled", ctx.Err()).
			WithContext("bytes_written", written)
	case errors.Is(streamErr, errAborted) && ctx.Err() == nil:
		return written, NewDownloadErrorWithCause(ErrorCancelled, "download cancelled", errAborted).
			WithContext("bytes_written", written)
	case errors.Is(streamErr, errAborted):
		// The caller's deadline expired between chunks
		return written, NewDownloadErrorWithCause(ErrorDownloadFailed, "failed to download file", ctx.Err()).
			WithContext("url", url).
			WithContext("bytes_written", written)
	case streamErr != nil:
		return written, NewDownloadErrorWithCause(ErrorDownloadFailed, "failed to download file", streamErr).
			WithContext("url", url)
	case closeErr != nil:
		return written, NewDownloadErrorWithCause(ErrorDownloadFailed, "failed to close destination file", closeErr).
			WithContext("destination", destination)
	}
	return written, nil
}

// cancelled reports whether ctx was cancelled, as opposed to running out of time
func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

// Cancel implements the Downloader interface
func (vd *VersionDownloader) Cancel() error {
	vd.mu.Lock()
	defer vd.mu.Unlock()

	if !vd.isActive {
		return NewDownloadError(ErrorUnknown, "no active download to cancel")
	}

	if vd.cancelFunc != nil {
		vd.cancelFunc()
	}

	return nil
}

// GetStatus implements the Downloader interface
func (vd *VersionDownloader) GetStatus() DownloadStatus {
	vd.mu.RLock()
	defer vd.mu.RUnlock()

	return vd.status
}

func (vd *VersionDownloader) recordProgress(downloaded, total int64) {
	vd.mu.Lock()
	vd.status.Progress = NewProgress(downloaded, total, time.Since(vd.status.StartTime))
	vd.mu.Unlock()
}

// updatePhase updates the current phase and notifies callbacks
func (vd *VersionDownloader) updatePhase(newPhase Phase, callbacks Callbacks) {
	vd.mu.Lock()
	oldPhase := vd.status.Phase
	vd.status.Phase = newPhase
	vd.mu.Unlock()

	if callbacks.OnPhaseChange != nil && oldPhase != newPhase {
		callbacks.OnPhaseChange(oldPhase, newPhase)
	}
}

// handleError moves the workflow to its failure exit and notifies callbacks
func (vd *VersionDownloader) handleError(err error, callbacks Callbacks) error {
	exit := PhaseFailed
	if IsCancelled(err) {
		exit = PhaseCancelled
	}

	vd.mu.Lock()
	vd.status.Error = err
	vd.mu.Unlock()

	vd.updatePhase(exit, callbacks)

	if exit == PhaseCancelled {
		vd.logger.Info("download cancelled", zap.Error(err))
	} else {
		vd.logger.Error("download failed", zap.Error(err))
	}

	if callbacks.OnError != nil {
		callbacks.OnError(err)
	}

	return err
}
