package container

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// assetIndexObject mirrors one entry of Minecraft's assets/indexes/<version>.json
// "objects" map: a virtual asset path resolving to a content-addressed blob
// under assets/objects/<hash[:2]>/<hash>.
type assetIndexObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

type assetIndexManifest struct {
	Objects map[string]assetIndexObject `json:"objects"`
}

// assetIndexReader serves the vanilla asset-index container: entries are the
// virtual paths named by the index JSON, and reads resolve through the
// content-addressed objects/ store rather than a path that matches the
// entry name directly.
type assetIndexReader struct {
	assetsRoot string
	version    string
	objects    map[string]assetIndexObject
}

func newAssetIndexReader(assetsRoot, version string) (*assetIndexReader, error) {
	indexPath := filepath.Join(assetsRoot, "indexes", version+".json")
	b, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("container: read asset index %q: %w", indexPath, err)
	}
	var manifest assetIndexManifest
	if err := json.Unmarshal(b, &manifest); err != nil {
		return nil, fmt.Errorf("container: parse asset index %q: %w", indexPath, err)
	}
	return &assetIndexReader{assetsRoot: assetsRoot, version: version, objects: manifest.Objects}, nil
}

func (r *assetIndexReader) Enumerate(ctx context.Context) (EntryIterator, error) {
	entries := make([]string, 0, len(r.objects))
	for virtualPath := range r.objects {
		entries = append(entries, virtualPath)
	}
	return &sliceIterator{entries: entries}, nil
}

func (r *assetIndexReader) Read(ctx context.Context, entryPath string) ([]byte, error) {
	obj, ok := r.objects[entryPath]
	if !ok {
		return nil, fmt.Errorf("container: asset index has no entry %q", entryPath)
	}
	if len(obj.Hash) < 2 {
		return nil, fmt.Errorf("container: asset index entry %q has malformed hash %q", entryPath, obj.Hash)
	}
	blobPath := filepath.Join(r.assetsRoot, "objects", obj.Hash[:2], obj.Hash)
	b, err := os.ReadFile(blobPath)
	if err != nil {
		return nil, fmt.Errorf("container: read object %q for entry %q: %w", obj.Hash, entryPath, err)
	}
	return b, nil
}

func (r *assetIndexReader) Close() error { return nil }
