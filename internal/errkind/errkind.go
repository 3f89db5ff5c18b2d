// Package errkind defines the typed error categories surfaced across the
// engine (spec §7): callers distinguish them with errors.Is rather than
// matching on message text.
package errkind

import "errors"

// Sentinel errors identifying the broad category of a failure. Wrap these
// with fmt.Errorf("...: %w", ErrConfig) (or github.com/pkg/errors.Wrap) so
// errors.Is still matches after context is added.
var (
	// ErrConfig is returned for a missing launcher root, missing instance, or
	// an empty source-toggle selection.
	ErrConfig = errors.New("config error")
	// ErrDiscovery is returned when the instance tree itself is unreadable;
	// fatal to the scan.
	ErrDiscovery = errors.New("discovery error")
	// ErrContainer is returned for a single container failure (bad archive,
	// missing asset index); logged and skipped, non-fatal to the scan.
	ErrContainer = errors.New("container error")
	// ErrRead is returned for a single entry read failure.
	ErrRead = errors.New("read error")
	// ErrTranscode is returned when audio conversion fails.
	ErrTranscode = errors.New("transcode error")
	// ErrCache is returned for a snapshot read/write failure; always
	// downgraded to a cache miss by the caller, never fatal.
	ErrCache = errors.New("cache error")
	// ErrState is returned for commands referencing an unknown scanId,
	// assetId, or operationId.
	ErrState = errors.New("state error")
	// ErrPreviewTooLarge is returned when a preview payload exceeds the size cap.
	ErrPreviewTooLarge = errors.New("preview too large")
)
