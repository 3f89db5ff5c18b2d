package container

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/prismassets/core/internal/diriterate"
)

// directoryReader walks a plain directory tree. Enumeration is lazy
// (depth-first, one directory expanded at a time via diriterate) so large
// resource-pack or instance trees never force every entry into memory.
type directoryReader struct {
	root string
	fsys fs.FS
}

func newDirectoryReader(root string) (*directoryReader, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: root, Err: fs.ErrInvalid}
	}
	return &directoryReader{root: root, fsys: os.DirFS(root)}, nil
}

func (r *directoryReader) Enumerate(ctx context.Context) (EntryIterator, error) {
	return &dirEntryIterator{ctx: ctx, fsys: r.fsys, pending: []string{"."}}, nil
}

func (r *directoryReader) Read(ctx context.Context, entryPath string) ([]byte, error) {
	// #nosec G304 -- entryPath is validated (no "..", forward-slash only) by
	// the asset extractor before any Read call reaches here.
	return os.ReadFile(filepath.Join(r.root, filepath.FromSlash(entryPath)))
}

func (r *directoryReader) Close() error { return nil }

// dirEntryIterator walks r.fsys depth-first, maintaining a stack of
// directories still to expand so no more than one directory's listing is
// resident at a time.
type dirEntryIterator struct {
	ctx     context.Context
	fsys    fs.FS
	pending []string // directories not yet expanded, LIFO
	current []fs.DirEntry
	currDir string
	idx     int
}

func (it *dirEntryIterator) Next() (string, error) {
	for {
		if it.ctx != nil && it.ctx.Err() != nil {
			return "", it.ctx.Err()
		}
		if it.idx < len(it.current) {
			e := it.current[it.idx]
			it.idx++
			full := path.Join(it.currDir, e.Name())
			if e.IsDir() {
				it.pending = append(it.pending, full)
				continue
			}
			return full, nil
		}
		if len(it.pending) == 0 {
			return "", io.EOF
		}
		next := it.pending[len(it.pending)-1]
		it.pending = it.pending[:len(it.pending)-1]

		dit, err := diriterate.ReadDir(it.fsys, next)
		if err != nil {
			// Permission errors and similar are skipped rather than aborting
			// the whole walk; the extractor's container error tally covers
			// genuinely fatal cases via the caller's own stat of the root.
			continue
		}
		entries, err := drain(dit)
		dit.Close()
		if err != nil {
			continue
		}
		it.current = entries
		it.currDir = next
		it.idx = 0
	}
}

func drain(it *diriterate.DirIterator) ([]fs.DirEntry, error) {
	var entries []fs.DirEntry
	for {
		e, err := it.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
}

func (it *dirEntryIterator) Close() error { return nil }
