package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// TerminalProgressReporter implements ProgressReporter with a progress bar on a terminal
type TerminalProgressReporter struct {
	out       io.Writer
	mu        sync.RWMutex
	bar       *progressbar.ProgressBar
	name      string
	isActive  bool
	startTime time.Time
	max       int64
}

// NewTerminalProgressReporter creates a reporter writing to out, or stderr when out is nil
func NewTerminalProgressReporter(out io.Writer) *TerminalProgressReporter {
	if out == nil {
		out = os.Stderr
	}
	return &TerminalProgressReporter{out: out}
}

// StartTracking begins progress tracking for the named package
func (tpr *TerminalProgressReporter) StartTracking(ctx context.Context, name string) error {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if tpr.isActive {
		return NewDownloadError(ErrorUnknown, "progress tracking is already active")
	}

	tpr.name = name
	tpr.isActive = true
	tpr.startTime = time.Now()
	tpr.max = -1
	tpr.bar = tpr.newBar(-1, tpr.getPhaseDescription(PhaseIdle))
	return nil
}

// UpdateProgress reports progress for the current phase
func (tpr *TerminalProgressReporter) UpdateProgress(phase Phase, progress Progress) error {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if !tpr.isActive || tpr.bar == nil {
		return nil
	}

	// The length is only known once the transfer has started
	if progress.TotalBytes > 0 && progress.TotalBytes != tpr.max {
		tpr.max = progress.TotalBytes
		_ = tpr.bar.Exit()
		tpr.bar = tpr.newBar(progress.TotalBytes, tpr.getPhaseDescription(phase))
	}

	return tpr.bar.Set64(progress.BytesProcessed)
}

// ReportPhaseChange reports a transition between phases
func (tpr *TerminalProgressReporter) ReportPhaseChange(oldPhase, newPhase Phase) error {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if !tpr.isActive || tpr.bar == nil {
		return nil
	}

	tpr.bar.Describe(tpr.getPhaseDescription(newPhase))
	return nil
}

// ReportError reports an error that occurred during processing
func (tpr *TerminalProgressReporter) ReportError(err error) error {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if !tpr.isActive {
		return nil
	}

	errorMsg := "An error occurred"
	var downloadErr *DownloadError
	if errors.As(err, &downloadErr) {
		errorMsg = downloadErr.Message
	} else if err != nil {
		errorMsg = err.Error()
	}

	if tpr.bar != nil {
		_ = tpr.bar.Exit()
	}
	_, writeErr := fmt.Fprintf(tpr.out, "\n%s: %s (after %s)\n",
		tpr.name, errorMsg, time.Since(tpr.startTime).Round(time.Second))
	return writeErr
}

// ReportComplete reports successful completion with summary information
func (tpr *TerminalProgressReporter) ReportComplete(duration time.Duration, filePath string) error {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if !tpr.isActive {
		return nil
	}

	if tpr.bar != nil {
		_ = tpr.bar.Finish()
	}

	size := ""
	if info, err := os.Stat(filePath); err == nil {
		size = " (" + humanize.IBytes(uint64(info.Size())) + ")"
	}
	_, err := fmt.Fprintf(tpr.out, "\nSaved %s to %s%s in %s\n",
		tpr.name, filePath, size, duration.Round(time.Millisecond))
	return err
}

// Stop stops progress tracking and cleans up resources
func (tpr *TerminalProgressReporter) Stop() {
	tpr.mu.Lock()
	defer tpr.mu.Unlock()

	if tpr.bar != nil {
		_ = tpr.bar.Exit()
		tpr.bar = nil
	}
	tpr.isActive = false
	tpr.name = ""
	tpr.max = 0
}

// IsActive returns whether the reporter is currently tracking progress
func (tpr *TerminalProgressReporter) IsActive() bool {
	tpr.mu.RLock()
	defer tpr.mu.RUnlock()
	return tpr.isActive
}

// GetCurrentName returns the name of the package being tracked
func (tpr *TerminalProgressReporter) GetCurrentName() string {
	tpr.mu.RLock()
	defer tpr.mu.RUnlock()
	return tpr.name
}

func (tpr *TerminalProgressReporter) newBar(max int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(max,
		progressbar.OptionSetWriter(tpr.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// getPhaseDescription returns the bar label for the given phase
func (tpr *TerminalProgressReporter) getPhaseDescription(phase Phase) string {
	switch phase {
	case PhaseResolving:
		return "Resolving download link..."
	case PhaseDownloading:
		return "Downloading " + tpr.name
	case PhaseCompleted:
		return "Download complete"
	case PhaseFailed:
		return "Download failed"
	case PhaseCancelled:
		return "Download cancelled"
	default:
		return "Preparing..."
	}
}
