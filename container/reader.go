package container

import (
	"context"
	"fmt"
	"io"
)

// EntryIterator yields forward-slash-normalized entry paths one at a time.
// Next returns io.EOF once exhausted. Implementations must not load file
// bytes during enumeration (spec §4.2).
type EntryIterator interface {
	Next() (string, error)
	Close() error
}

// Reader is the uniform read interface over a container's physical form
// (spec §4.2): directory, zip/jar archive, or Minecraft asset-index store.
// Implementations must be safe to call concurrently from the extractor and
// from later preview/export reads, since archive readers are reused across
// the scan's lifetime.
type Reader interface {
	// Enumerate returns an iterator over every entry path in the container.
	Enumerate(ctx context.Context) (EntryIterator, error)
	// Read returns the bytes of a single entry. Implementations must not
	// retain the returned bytes after this call.
	Read(ctx context.Context, entryPath string) ([]byte, error)
	// Close releases any resources held open for the container's lifetime
	// (an open archive's central directory, an open index file handle).
	Close() error
}

// NewReader builds the Reader appropriate for a Container's Type.
func NewReader(c *Container) (Reader, error) {
	switch c.Type {
	case TypeDirectory:
		return newDirectoryReader(c.Path)
	case TypeZip, TypeJar:
		return newZipReader(c.Path)
	case TypeAssetIndex:
		return newAssetIndexReader(c.Path, c.AssetIndexVersion)
	default:
		return nil, fmt.Errorf("container: unknown container type %q", c.Type)
	}
}

// sliceIterator adapts a pre-computed slice of entry paths to EntryIterator,
// used by readers whose entry set is cheap to materialize up front (zip
// central directory, asset-index JSON) without violating the "no bytes
// loaded during enumeration" rule above.
type sliceIterator struct {
	entries []string
	pos     int
}

func (it *sliceIterator) Next() (string, error) {
	if it.pos >= len(it.entries) {
		return "", io.EOF
	}
	e := it.entries[it.pos]
	it.pos++
	return e, nil
}

func (it *sliceIterator) Close() error { return nil }
