package downloader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProgressTracker manages periodic progress updates with a 2-second interval
type ProgressTracker struct {
	// Configuration
	updateInterval time.Duration
	reporter       ProgressReporter
	logger         *zap.Logger

	// State management
	mu              sync.RWMutex
	isRunning       bool
	currentPhase    Phase
	currentProgress Progress

	// Goroutine management
	ctx        context.Context
	cancel     context.CancelFunc
	ticker     *time.Ticker
	updateChan chan progressUpdate
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// progressUpdate represents an internal progress update
type progressUpdate struct {
	phase    Phase
	progress Progress
}

// NewProgressTracker creates a new ProgressTracker with the specified reporter
func NewProgressTracker(reporter ProgressReporter) *ProgressTracker {
	return &ProgressTracker{
		updateInterval: 2 * time.Second,
		reporter:       reporter,
		logger:         zap.NewNop(),
		currentPhase:   -1, // invalid until the first update so it counts as a change
	}
}

// NewProgressTrackerWithInterval creates a ProgressTracker with a custom update interval
func NewProgressTrackerWithInterval(reporter ProgressReporter, interval time.Duration) *ProgressTracker {
	pt := NewProgressTracker(reporter)
	pt.updateInterval = interval
	return pt
}

// WithLogger sets the logger used for reporter failures
func (pt *ProgressTracker) WithLogger(logger *zap.Logger) *ProgressTracker {
	if logger != nil {
		pt.logger = logger
	}
	return pt
}

// Start begins the progress tracking with periodic updates
func (pt *ProgressTracker) Start(ctx context.Context) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.isRunning {
		return NewDownloadError(ErrorUnknown, "progress tracker is already running")
	}

	pt.updateChan = make(chan progressUpdate, 10)
	pt.stopChan = make(chan struct{})
	pt.doneChan = make(chan struct{})

	pt.ctx, pt.cancel = context.WithCancel(ctx)
	pt.ticker = time.NewTicker(pt.updateInterval)
	pt.isRunning = true

	go pt.updateLoop()

	return nil
}

// Stop stops the progress tracking, reports the last known progress once more
// and stops the reporter
func (pt *ProgressTracker) Stop() {
	pt.finish(nil)
}

// Complete stops tracking like Stop and reports result to the reporter
func (pt *ProgressTracker) Complete(result *DownloadResult) {
	pt.finish(func(r ProgressReporter) error {
		return r.ReportComplete(result.Duration, result.FilePath)
	})
}

// Fail stops tracking like Stop and reports err to the reporter
func (pt *ProgressTracker) Fail(err error) {
	pt.finish(func(r ProgressReporter) error {
		return r.ReportError(err)
	})
}

func (pt *ProgressTracker) finish(final func(ProgressReporter) error) {
	pt.mu.Lock()
	if !pt.isRunning {
		pt.mu.Unlock()
		return
	}

	select {
	case <-pt.stopChan:
	default:
		close(pt.stopChan)
	}

	if pt.cancel != nil {
		pt.cancel()
	}
	pt.isRunning = false
	pt.mu.Unlock()

	<-pt.doneChan

	if pt.ticker != nil {
		pt.ticker.Stop()
		pt.ticker = nil
	}

	pt.drain()

	if pt.reporter == nil {
		return
	}

	pt.mu.RLock()
	phase, progress := pt.currentPhase, pt.currentProgress
	pt.mu.RUnlock()
	if phase >= 0 && progress.BytesProcessed > 0 {
		pt.report(phase, progress)
	}
	if final != nil {
		if err := final(pt.reporter); err != nil {
			pt.logger.Warn("failed to report final state", zap.Error(err))
		}
	}
	pt.reporter.Stop()
}

// UpdateProgress updates the current progress information
func (pt *ProgressTracker) UpdateProgress(phase Phase, progress Progress) {
	pt.mu.RLock()
	if !pt.isRunning {
		pt.mu.RUnlock()
		return
	}
	pt.mu.RUnlock()

	// Non-blocking: the transfer never waits on the reporter
	select {
	case pt.updateChan <- progressUpdate{phase: phase, progress: progress}:
	default:
		// Queue is full: keep the newest byte count for the next tick
		pt.mu.Lock()
		if phase == pt.currentPhase && progress != (Progress{}) {
			pt.currentProgress = progress
		}
		pt.mu.Unlock()
	}
}

// GetCurrentProgress returns the current progress state (thread-safe)
func (pt *ProgressTracker) GetCurrentProgress() (Phase, Progress) {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.currentPhase, pt.currentProgress
}

// IsRunning returns whether the tracker is currently running
func (pt *ProgressTracker) IsRunning() bool {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.isRunning
}

// Callbacks returns download callbacks that feed this tracker. next is
// invoked after the tracker has recorded each event and decides the
// progress action.
func (pt *ProgressTracker) Callbacks(next Callbacks) Callbacks {
	var (
		mu    sync.Mutex
		start time.Time
		phase = PhaseIdle
	)
	return Callbacks{
		OnPhaseChange: func(oldPhase, newPhase Phase) {
			mu.Lock()
			phase = newPhase
			if newPhase == PhaseDownloading {
				start = time.Now()
			}
			mu.Unlock()
			pt.UpdateProgress(newPhase, Progress{})
			if next.OnPhaseChange != nil {
				next.OnPhaseChange(oldPhase, newPhase)
			}
		},
		OnProgress: func(downloaded, total int64) Action {
			mu.Lock()
			current, elapsed := phase, time.Since(start)
			mu.Unlock()
			pt.UpdateProgress(current, NewProgress(downloaded, total, elapsed))
			if next.OnProgress != nil {
				return next.OnProgress(downloaded, total)
			}
			return Continue
		},
		OnError:    next.OnError,
		OnComplete: next.OnComplete,
	}
}

// updateLoop runs the main update loop in a separate goroutine
func (pt *ProgressTracker) updateLoop() {
	defer close(pt.doneChan)

	var lastReportedPhase Phase = -1

	for {
		select {
		case <-pt.ctx.Done():
			return

		case <-pt.stopChan:
			return

		case update := <-pt.updateChan:
			pt.apply(update)

		case <-pt.ticker.C:
			pt.mu.RLock()
			currentPhase := pt.currentPhase
			currentProgress := pt.currentProgress
			pt.mu.RUnlock()

			// Only report once a phase has been set
			if pt.reporter != nil && currentPhase >= 0 &&
				(currentPhase != lastReportedPhase || currentProgress.BytesProcessed > 0) {
				pt.report(currentPhase, currentProgress)
				lastReportedPhase = currentPhase
			}
		}
	}
}

// drain applies updates that were queued before the loop exited
func (pt *ProgressTracker) drain() {
	for {
		select {
		case update := <-pt.updateChan:
			pt.apply(update)
		default:
			return
		}
	}
}

func (pt *ProgressTracker) apply(update progressUpdate) {
	pt.mu.Lock()
	oldPhase := pt.currentPhase
	pt.currentPhase = update.phase
	// A bare phase change keeps the last transfer state, and a stale queued
	// update never moves the byte count backwards within a phase
	stale := update.phase == oldPhase && update.progress.BytesProcessed < pt.currentProgress.BytesProcessed
	if update.progress != (Progress{}) && !stale {
		pt.currentProgress = update.progress
	}
	pt.mu.Unlock()

	if oldPhase != update.phase && pt.reporter != nil {
		if err := pt.reporter.ReportPhaseChange(oldPhase, update.phase); err != nil {
			pt.logger.Warn("failed to report phase change",
				zap.Stringer("from", oldPhase),
				zap.Stringer("to", update.phase),
				zap.Error(err))
		}
	}
}

func (pt *ProgressTracker) report(phase Phase, progress Progress) {
	if err := pt.reporter.UpdateProgress(phase, progress); err != nil {
		pt.logger.Warn("failed to report progress", zap.Stringer("phase", phase), zap.Error(err))
	}
}
