// Package stats contains interfaces and utilities relating to the collection
// of statistics from a scan or export run. It mirrors the collector-hook
// pattern used throughout the engine: callers that care about metrics
// implement Collector; everyone else uses NoopCollector.
package stats

import "time"

// Collector is notified when certain scan/export events occur. It can be
// implemented with different metric backends (e.g. Prometheus, as the
// gateway command does) to enable monitoring of the engine.
type Collector interface {
	// AfterEntryVisited is called once per container entry visited during
	// enumeration, before admission filtering.
	AfterEntryVisited(containerPath, entryPath string)
	// AfterContainerScanned is called once a container's entries have all
	// been walked (or the container failed outright).
	AfterContainerScanned(containerPath string, runtime time.Duration, err error)
	// AfterScan is called once a full scan or refresh sweep terminates.
	AfterScan(runtime time.Duration, assetCount int, err error)
	// AfterEntryExtracted is called once per enumerated entry with its
	// outcome: admitted, skipped, or failed.
	AfterEntryExtracted(entryStats *EntryStats)
	// AfterExportItem is called once per resolved asset in an export operation.
	AfterExportItem(assetID string, bytes int64, err error)
}

// EntryStats describes the outcome of extracting metadata from one
// container entry. If the entry failed, Error is populated; a skipped entry
// carries only its Result.
type EntryStats struct {
	ContainerPath string
	EntryPath     string
	Result        EntryExtractedResult
	Error         error
	SizeBytes     int64
}

// EntryExtractedResult is a string representation of the outcome of
// admitting and extracting one container entry.
type EntryExtractedResult string

const (
	// EntryExtractedResultOK indicates the entry became an AssetRecord.
	EntryExtractedResultOK EntryExtractedResult = "ENTRY_EXTRACTED_RESULT_OK"
	// EntryExtractedResultSkippedNotAsset indicates the entry did not match
	// the assets/<namespace>/ convention.
	EntryExtractedResultSkippedNotAsset EntryExtractedResult = "ENTRY_EXTRACTED_RESULT_SKIPPED_NOT_ASSET"
	// EntryExtractedResultSkippedUnsafe indicates the entry was rejected for
	// containing ".." segments, null bytes, or a macOS resource-fork path.
	EntryExtractedResultSkippedUnsafe EntryExtractedResult = "ENTRY_EXTRACTED_RESULT_SKIPPED_UNSAFE"
	// EntryExtractedResultError indicates a malformed entry or read failure.
	EntryExtractedResultError EntryExtractedResult = "ENTRY_EXTRACTED_RESULT_ERROR"
)

// NoopCollector implements Collector by doing nothing.
type NoopCollector struct{}

// AfterEntryVisited implements Collector by doing nothing.
func (NoopCollector) AfterEntryVisited(containerPath, entryPath string) {}

// AfterContainerScanned implements Collector by doing nothing.
func (NoopCollector) AfterContainerScanned(containerPath string, runtime time.Duration, err error) {
}

// AfterScan implements Collector by doing nothing.
func (NoopCollector) AfterScan(runtime time.Duration, assetCount int, err error) {}

// AfterEntryExtracted implements Collector by doing nothing.
func (NoopCollector) AfterEntryExtracted(entryStats *EntryStats) {}

// AfterExportItem implements Collector by doing nothing.
func (NoopCollector) AfterExportItem(assetID string, bytes int64, err error) {}
