// Package asset extracts AssetRecords from container entries (spec §4.3):
// admission against the assets/<namespace>/ convention, kind classification,
// and the id/key derivations the index and export stages depend on.
package asset

import "github.com/prismassets/core/container"

// Record is one indexed file inside a container.
type Record struct {
	// AssetID is opaque, stable within a scan, and deterministic across
	// reruns of an unchanged container (spec §4.3 step 5).
	AssetID string
	// Key is the search string "sourceName / namespace / relativeAssetPath".
	Key string
	// KeyLower is Key lowercased, retained for case-insensitive matching.
	KeyLower string

	SourceType container.SourceType
	SourceName string
	Namespace  string
	// RelativeAssetPath is the entry path remainder under assets/<ns>/.
	RelativeAssetPath string
	// Extension is lowercased, empty if the final path segment has none.
	Extension string
	IsImage   bool
	IsAudio   bool

	// ContainerPath, ContainerType and EntryPath together locate the bytes:
	// container.NewReader(containerPath, containerType).Read(entryPath).
	ContainerPath string
	ContainerType container.Type
	EntryPath     string

	// SizeBytes is carried through the cache and the wire view, but the
	// extractor does not fill it in (readers expose no entry sizes), so it is
	// zero for every extracted record.
	SizeBytes int64
}

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
	"bmp": true, "webp": true, "tga": true,
}

var audioExtensions = map[string]bool{
	"ogg": true, "mp3": true, "wav": true, "flac": true,
}
