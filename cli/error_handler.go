package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mcbedrock-downloader/catalog"
	"mcbedrock-downloader/downloader"
	"mcbedrock-downloader/transport"
)

// maxRetryDelay caps the exponential backoff
const maxRetryDelay = 30 * time.Second

var errTokenRequired = errors.New("beta versions require an MSA token")

// ErrorHandler turns failures into retries and user facing guidance
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger}
}

// RetryWithBackoff runs operation until it succeeds, fails with a
// non-retryable error or has been retried maxRetries times. The delay doubles
// after every attempt starting at baseDelay.
func (e *ErrorHandler) RetryWithBackoff(ctx context.Context, operation func() error, maxRetries int, baseDelay time.Duration) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}

			e.logger.Info("retrying operation",
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", maxRetries+1))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			case <-timer.C:
			}
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				e.logger.Info("operation succeeded after retries", zap.Int("retries", attempt))
			}
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || !e.IsRetryableError(err) {
			e.logger.Debug("non-retryable error", zap.Error(err))
			return err
		}

		e.logger.Warn("operation failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries+1),
			zap.Error(err))
	}

	return fmt.Errorf("operation failed after %d attempts: %w", maxRetries+1, lastErr)
}

// IsRetryableError reports whether err is a transient network or server failure
func (e *ErrorHandler) IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errorMsg := strings.ToLower(err.Error())
	for _, retryable := range []string{
		"connection refused",
		"connection reset",
		"temporary failure",
		"network is unreachable",
		"no route to host",
	} {
		if strings.Contains(errorMsg, retryable) {
			return true
		}
	}

	return false
}

// BetaTokenWarning is printed when a beta version is requested without a token
func (e *ErrorHandler) BetaTokenWarning(out io.Writer) {
	fmt.Fprintln(out, "WARNING: Beta versions require authentication!")
	fmt.Fprintln(out, "Provide an MSA token with --token or the MSA_TOKEN environment variable.")
}

// DownloadFailure prints guidance for a failed download of v
func (e *ErrorHandler) DownloadFailure(out io.Writer, err error, v catalog.Version) {
	switch {
	case downloader.IsCancelled(err):
		fmt.Fprintln(out, "\nDownload cancelled")
	case downloader.IsBadUpdateIdentity(err):
		fmt.Fprintln(out, "\nError: Unable to fetch download URL")
		if v.RequiresToken() {
			fmt.Fprintln(out, "For beta versions, make sure:")
			fmt.Fprintln(out, "1. Your account is subscribed to the Minecraft beta program")
			fmt.Fprintln(out, "2. You have provided a valid MSA token")
		}
	default:
		fmt.Fprintf(out, "\nDownload failed: %v\n", err)
	}
}

// maskString masks sensitive information for logging
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "***" + s[len(s)-4:]
}
