package scancache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/prismassets/core/container"
)

// statFn is a seam over os.Stat so tests can supply deterministic
// fs.FileInfo values instead of real, clock-dependent file metadata.
var statFn = os.Stat

// Fingerprint computes a cheap identity for c: a plain stat for archives and
// the asset-index JSON (falling back to a content hash when the mtime is
// absent or zero), or a hash of the sorted (entryPath, size) listing for
// directories, whose individual files rarely carry a reliable mtime across
// extraction tools (spec §4.5).
func Fingerprint(ctx context.Context, c *container.Container) (ContainerFingerprint, error) {
	fp := ContainerFingerprint{ContainerPath: c.Path, ContainerType: string(c.Type)}

	if c.Type == container.TypeDirectory {
		listHash, err := hashDirectoryListing(ctx, c)
		if err != nil {
			return fp, err
		}
		fp.ContentHash = listHash
		return fp, nil
	}

	statPath := c.Path
	if c.Type == container.TypeAssetIndex {
		statPath = filepath.Join(c.Path, "indexes", c.AssetIndexVersion+".json")
	}
	info, err := statFn(statPath)
	if err != nil {
		return fp, err
	}
	fp.Size = info.Size()
	if mt := info.ModTime(); mt.IsZero() || mt.UnixNano() == 0 {
		b, err := os.ReadFile(statPath)
		if err != nil {
			return fp, err
		}
		sum := sha256.Sum256(b)
		fp.ContentHash = hex.EncodeToString(sum[:])
		return fp, nil
	}
	fp.ModifiedTimeNs = info.ModTime().UnixNano()
	return fp, nil
}

func hashDirectoryListing(ctx context.Context, c *container.Container) (string, error) {
	r, err := container.NewReader(c)
	if err != nil {
		return "", err
	}
	defer r.Close()

	it, err := r.Enumerate(ctx)
	if err != nil {
		return "", err
	}
	defer it.Close()

	type entry struct {
		path string
		size int64
	}
	var entries []entry
	for {
		e, err := it.Next()
		if err != nil {
			break
		}
		info, statErr := statFn(filepath.Join(c.Path, filepath.FromSlash(e)))
		var size int64
		if statErr == nil {
			size = info.Size()
		}
		entries = append(entries, entry{path: e, size: size})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s:%d\n", e.path, e.size)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Changed reports whether cur differs from the previously recorded
// fingerprint for the same container path.
func Changed(prev, cur ContainerFingerprint) bool {
	if prev.ContainerType != cur.ContainerType {
		return true
	}
	if cur.ContentHash != "" || prev.ContentHash != "" {
		return prev.ContentHash != cur.ContentHash
	}
	return prev.Size != cur.Size || prev.ModifiedTimeNs != cur.ModifiedTimeNs
}
