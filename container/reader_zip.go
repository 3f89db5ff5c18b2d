package container

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// zipReader serves a mod or resource-pack archive (.jar/.zip). The central
// directory is parsed once at open time and kept resident for the
// container's lifetime; individual entries are opened and closed per Read
// call, which archive/zip documents as safe to do repeatedly and
// concurrently against the same *zip.Reader.
type zipReader struct {
	mu    sync.Mutex
	rc    *zip.ReadCloser
	byIdx map[string]*zip.File
}

func newZipReader(path string) (*zipReader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("container: open zip %q: %w", path, err)
	}
	byIdx := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		byIdx[f.Name] = f
	}
	return &zipReader{rc: rc, byIdx: byIdx}, nil
}

func (r *zipReader) Enumerate(ctx context.Context) (EntryIterator, error) {
	r.mu.Lock()
	entries := make([]string, 0, len(r.byIdx))
	for name := range r.byIdx {
		entries = append(entries, name)
	}
	r.mu.Unlock()
	return &sliceIterator{entries: entries}, nil
}

func (r *zipReader) Read(ctx context.Context, entryPath string) ([]byte, error) {
	r.mu.Lock()
	f, ok := r.byIdx[entryPath]
	r.mu.Unlock()
	if !ok {
		// zip entry names are forward-slash already; tolerate a leading slash
		// some packers emit.
		f, ok = r.byIdx[strings.TrimPrefix(entryPath, "/")]
		if !ok {
			return nil, fmt.Errorf("container: entry %q not found in archive", entryPath)
		}
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("container: open entry %q: %w", entryPath, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("container: read entry %q: %w", entryPath, err)
	}
	return b, nil
}

func (r *zipReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rc.Close()
}
