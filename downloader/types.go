package downloader

import "time"

// Phase represents the current phase of the download workflow
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolving
	PhaseDownloading
	PhaseCompleted
	PhaseFailed
	PhaseCancelled
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolving:
		return "resolving"
	case PhaseDownloading:
		return "downloading"
	case PhaseCompleted:
		return "completed"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can follow the phase
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// DefaultRevision is the revision number used for every catalog entry
const DefaultRevision = "1"

// UpdateIdentity identifies one downloadable package
type UpdateIdentity struct {
	UpdateID       string `json:"update_id"`
	RevisionNumber string `json:"revision_number"`
}

// NewUpdateIdentity returns the identity of updateID at DefaultRevision
func NewUpdateIdentity(updateID string) UpdateIdentity {
	return UpdateIdentity{UpdateID: updateID, RevisionNumber: DefaultRevision}
}

// Progress represents the current progress of a transfer
type Progress struct {
	BytesProcessed int64         `json:"bytes_processed"`
	TotalBytes     int64         `json:"total_bytes"` // 0 when the server sent no length
	Speed          int64         `json:"speed"`       // bytes per second
	ETA            time.Duration `json:"eta"`
	Percentage     float64       `json:"percentage"`
}

// NewProgress derives speed, ETA and percentage from a byte count and the
// time elapsed since the transfer started
func NewProgress(downloaded, total int64, elapsed time.Duration) Progress {
	p := Progress{
		BytesProcessed: downloaded,
		TotalBytes:     total,
	}
	if elapsed > 0 {
		p.Speed = int64(float64(downloaded) / elapsed.Seconds())
	}
	if total > 0 {
		p.Percentage = float64(downloaded) / float64(total) * 100
		if p.Speed > 0 && total > downloaded {
			p.ETA = time.Duration(float64(total-downloaded)/float64(p.Speed)) * time.Second
		}
	}
	return p
}

// Action is returned by a progress callback to continue or stop a transfer
type Action int

const (
	Continue Action = iota
	Abort
)

// ProgressFunc is invoked after each chunk is written with the cumulative
// byte count and the declared total (0 when unknown)
type ProgressFunc func(downloaded, total int64) Action

// Callbacks defines the hooks invoked during a download workflow
type Callbacks struct {
	OnProgress    ProgressFunc
	OnPhaseChange func(oldPhase, newPhase Phase)
	OnError       func(err error)
	OnComplete    func(result *DownloadResult)
}

// DownloadResult contains the result of a successful download
type DownloadResult struct {
	FilePath string         `json:"file_path"`
	URL      string         `json:"url"`
	Identity UpdateIdentity `json:"identity"`
	FileSize int64          `json:"file_size"`
	Duration time.Duration  `json:"duration"`
}

// DownloadStatus represents the current status of a download workflow
type DownloadStatus struct {
	Phase       Phase          `json:"phase"`
	Progress    Progress       `json:"progress"`
	StartTime   time.Time      `json:"start_time"`
	Identity    UpdateIdentity `json:"identity"`
	Destination string         `json:"destination"`
	IsActive    bool           `json:"is_active"`
	Error       error          `json:"error,omitempty"`
}
