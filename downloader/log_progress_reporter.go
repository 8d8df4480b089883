package downloader

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

var (
	_ ProgressReporter = (*LogProgressReporter)(nil)
	_ ProgressReporter = (*TerminalProgressReporter)(nil)
)

// LogProgressReporter implements ProgressReporter by writing structured log entries
type LogProgressReporter struct {
	logger    *zap.Logger
	mu        sync.RWMutex
	name      string
	isActive  bool
	startTime time.Time
}

func NewLogProgressReporter(logger *zap.Logger) *LogProgressReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogProgressReporter{logger: logger}
}

func (lpr *LogProgressReporter) StartTracking(ctx context.Context, name string) error {
	lpr.mu.Lock()
	defer lpr.mu.Unlock()

	if lpr.isActive {
		return NewDownloadError(ErrorUnknown, "progress tracking is already active")
	}
	lpr.name = name
	lpr.isActive = true
	lpr.startTime = time.Now()
	lpr.logger.Info("tracking download", zap.String("name", name))
	return nil
}

func (lpr *LogProgressReporter) UpdateProgress(phase Phase, progress Progress) error {
	lpr.mu.RLock()
	defer lpr.mu.RUnlock()

	if !lpr.isActive {
		return nil
	}

	fields := []zap.Field{
		zap.String("name", lpr.name),
		zap.Stringer("phase", phase),
		zap.String("downloaded", humanize.IBytes(uint64(progress.BytesProcessed))),
		zap.String("speed", humanize.IBytes(uint64(progress.Speed))+"/s"),
	}
	if progress.TotalBytes > 0 {
		fields = append(fields,
			zap.String("total", humanize.IBytes(uint64(progress.TotalBytes))),
			zap.String("percent", humanize.FtoaWithDigits(progress.Percentage, 1)),
			zap.Duration("eta", progress.ETA))
	}
	lpr.logger.Info("download progress", fields...)
	return nil
}

func (lpr *LogProgressReporter) ReportPhaseChange(oldPhase, newPhase Phase) error {
	lpr.mu.RLock()
	defer lpr.mu.RUnlock()

	if !lpr.isActive {
		return nil
	}
	lpr.logger.Debug("phase changed",
		zap.String("name", lpr.name),
		zap.Stringer("from", oldPhase),
		zap.Stringer("to", newPhase))
	return nil
}

func (lpr *LogProgressReporter) ReportError(err error) error {
	lpr.mu.RLock()
	defer lpr.mu.RUnlock()

	if !lpr.isActive {
		return nil
	}
	lpr.logger.Error("download failed",
		zap.String("name", lpr.name),
		zap.Duration("elapsed", time.Since(lpr.startTime)),
		zap.Error(err))
	return nil
}

func (lpr *LogProgressReporter) ReportComplete(duration time.Duration, filePath string) error {
	lpr.mu.RLock()
	defer lpr.mu.RUnlock()

	if !lpr.isActive {
		return nil
	}
	lpr.logger.Info("download complete",
		zap.String("name", lpr.name),
		zap.String("path", filePath),
		zap.Duration("duration", duration))
	return nil
}

func (lpr *LogProgressReporter) Stop() {
	lpr.mu.Lock()
	defer lpr.mu.Unlock()
	lpr.isActive = false
	lpr.name = ""
}
