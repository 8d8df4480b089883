// Package downloader resolves Minecraft Bedrock update identities to package
// URLs and streams the packages to disk with progress reporting.
//
// The package defines:
//   - VersionDownloader: the resolve-then-fetch workflow over one transport session
//   - Phase: the workflow state machine (idle, resolving, downloading, completed, failed, cancelled)
//   - DownloadError: the error taxonomy surfaced to callers
//   - ProgressTracker and ProgressReporter: periodic progress fan-out to a terminal or a log
//
// A progress callback may return Abort to stop the transfer. Cancellation is
// observed between chunks and leaves the partially written file in place for
// the caller to inspect or remove.
package downloader
