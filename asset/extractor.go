package asset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/text/unicode/norm"

	"github.com/prismassets/core/container"
	"github.com/prismassets/core/stats"
)

// normalizeEntryPath converts a raw container entry path (which may use
// either separator depending on the archive's origin OS) to forward-slash
// form, the only form the admission and namespace logic below understands.
func normalizeEntryPath(path string) string {
	return filepath.ToSlash(path)
}

// isEntryPathSafe rejects any entry path that escapes the container root
// once cleaned, including absolute paths and "../" traversal.
func isEntryPathSafe(path string) bool {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return false
	}
	return !filepath.IsAbs(cleaned)
}

// ignoreGlobs matches archive junk entries that never represent a real
// asset, regardless of source OS (macOS resource forks, Finder metadata).
var ignoreGlobs = []glob.Glob{
	glob.MustCompile("__MACOSX/**"),
	glob.MustCompile("**/__MACOSX/**"),
	glob.MustCompile("**/.DS_Store"),
	glob.MustCompile(".DS_Store"),
}

func matchesIgnoreGlob(entryPath string) bool {
	for _, g := range ignoreGlobs {
		if g.Match(entryPath) {
			return true
		}
	}
	return false
}

// Extractor turns a container's raw entry paths into Records.
type Extractor struct {
	collector stats.Collector
}

// NewExtractor builds an Extractor reporting to collector. A nil collector
// is replaced with stats.NoopCollector.
func NewExtractor(collector stats.Collector) *Extractor {
	if collector == nil {
		collector = stats.NoopCollector{}
	}
	return &Extractor{collector: collector}
}

// ExtractContainer enumerates c via r and returns every admitted Record. A
// malformed or skipped entry is tallied through the collector and does not
// abort the container (spec §4.3).
func (x *Extractor) ExtractContainer(ctx context.Context, c *container.Container, r container.Reader) ([]Record, error) {
	it, err := r.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("asset: enumerate %q: %w", c.Path, err)
	}
	defer it.Close()

	var records []Record
	for {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		entryPath, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			x.collector.AfterEntryExtracted(&stats.EntryStats{
				ContainerPath: c.Path,
				Result:        stats.EntryExtractedResultError,
				Error:         err,
			})
			continue
		}
		x.collector.AfterEntryVisited(c.Path, entryPath)

		rec, skip, reason := x.classify(c, entryPath)
		if skip {
			x.collector.AfterEntryExtracted(&stats.EntryStats{
				ContainerPath: c.Path,
				EntryPath:     entryPath,
				Result:        reason,
			})
			continue
		}
		x.collector.AfterEntryExtracted(&stats.EntryStats{
			ContainerPath: c.Path,
			EntryPath:     entryPath,
			Result:        stats.EntryExtractedResultOK,
			SizeBytes:     rec.SizeBytes,
		})
		records = append(records, rec)
	}
	return records, nil
}

// classify applies the admission and derivation rules of spec §4.3 to a
// single raw entry path.
func (x *Extractor) classify(c *container.Container, rawEntryPath string) (Record, bool, stats.EntryExtractedResult) {
	entryPath := normalizeEntryPath(rawEntryPath)

	if strings.Contains(entryPath, "\x00") || !isEntryPathSafe(entryPath) {
		return Record{}, true, stats.EntryExtractedResultSkippedUnsafe
	}
	if matchesIgnoreGlob(entryPath) {
		return Record{}, true, stats.EntryExtractedResultSkippedUnsafe
	}

	// The vanilla asset-index reader yields bare virtual paths ("icons/...",
	// "minecraft/textures/...") rather than assets/<namespace>/... paths;
	// admit them under the minecraft namespace by the same convention the
	// real launcher assets tree uses for legacy (pre-1.7) virtual assets.
	assetPath := entryPath
	if c.Type == container.TypeAssetIndex {
		rest := strings.TrimPrefix(entryPath, "minecraft/")
		assetPath = "assets/minecraft/" + rest
	}

	const prefix = "assets/"
	if !strings.HasPrefix(assetPath, prefix) {
		return Record{}, true, stats.EntryExtractedResultSkippedNotAsset
	}
	rest := assetPath[len(prefix):]
	slash := strings.IndexByte(rest, '/')
	if slash <= 0 {
		return Record{}, true, stats.EntryExtractedResultSkippedNotAsset
	}
	namespace := rest[:slash]
	relativeAssetPath := rest[slash+1:]
	if relativeAssetPath == "" {
		return Record{}, true, stats.EntryExtractedResultSkippedNotAsset
	}

	extension := ""
	finalSeg := relativeAssetPath
	if idx := strings.LastIndexByte(relativeAssetPath, '/'); idx >= 0 {
		finalSeg = relativeAssetPath[idx+1:]
	}
	if dot := strings.LastIndexByte(finalSeg, '.'); dot >= 0 && dot < len(finalSeg)-1 {
		extension = strings.ToLower(finalSeg[dot+1:])
	}

	key := norm.NFC.String(fmt.Sprintf("%s / %s / %s", c.Name, namespace, relativeAssetPath))

	rec := Record{
		AssetID:           deriveAssetID(c.Path, rawEntryPath),
		Key:               key,
		KeyLower:          strings.ToLower(key),
		SourceType:        c.Source,
		SourceName:        c.Name,
		Namespace:         namespace,
		RelativeAssetPath: relativeAssetPath,
		Extension:         extension,
		IsImage:           imageExtensions[extension],
		IsAudio:           audioExtensions[extension],
		ContainerPath:     c.Path,
		ContainerType:     c.Type,
		EntryPath:         rawEntryPath,
	}
	return rec, false, stats.EntryExtractedResultOK
}

// deriveAssetID renders a 128-bit digest of (containerPath, entryPath) as a
// hex string. The pairing is stable across reruns on an unchanged container,
// which the In-Memory Index relies on to reconcile prior selections (spec
// §4.6 reconcileAssetIds).
func deriveAssetID(containerPath, entryPath string) string {
	h := md5.New()
	io.WriteString(h, containerPath)
	h.Write([]byte{0})
	io.WriteString(h, entryPath)
	return hex.EncodeToString(h.Sum(nil))
}
