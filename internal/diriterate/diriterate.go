// Package diriterate provides a utility for iterating over the contents of a
// directory without loading all of it into memory at once. The directory
// container reader uses it so enumeration stays allocation-light over large
// mod and resourcepack trees.
package diriterate

import (
	"errors"
	"io"
	"io/fs"
)

// ReadDir reads the named directory and returns an iterator over the directory entries.
func ReadDir(fsys fs.FS, name string) (*DirIterator, error) {
	// Check if the path is accessible
	_, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}

	// Try to open the directory
	file, err := fsys.Open(name)
	if err != nil {
		// The underlying filesystem might not have implemented Open() for directories.
		// In this case, we fall back to reading all entries using readDirAll()
		return readDirAll(fsys, name)
	}

	// Check if the file supports incremental Readdir
	dir, ok := file.(fs.ReadDirFile)
	if !ok {
		// If ReadDirFile is not implemented, close the file and fall back to reading all entries
		// (Uses more memory since it reads all subdirs at once.)
		if err := file.Close(); err != nil {
			return nil, &fs.PathError{Op: "close", Path: name, Err: err}
		}
		return readDirAll(fsys, name)
	}

	return &DirIterator{dir: dir}, nil
}

// readDirAll reads all directory entries using fs.ReadDir
// and returns a DirIterator with preloaded entries.
func readDirAll(fsys fs.FS, name string) (*DirIterator, error) {
	files, err := fs.ReadDir(fsys, name)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errors.New("not implemented")}
	}
	return &DirIterator{files: files, curr: 0}, nil
}

// DirIterator iterates over the contents of a directory without loading all
// of it into memory at once.
type DirIterator struct {
	// dir is used to iterate directory entries
	dir fs.ReadDirFile
	// if dir doesn't implement fs.ReadDirFile, file and curr are used as
	// fallback to iterate through a preloaded list of files
	files []fs.DirEntry
	curr  int
}

// Next returns the next fs.DirEntry from the directory. If error is nil, there will be a
// fs.DirEntry returned.
func (i *DirIterator) Next() (fs.DirEntry, error) {
	if len(i.files) > 0 {
		if i.curr >= len(i.files) {
			return nil, io.EOF
		}
		i.curr++
		return i.files[i.curr-1], nil
	}

	if i.dir == nil {
		// This is an iterator for an empty directory, so we return EOF immediately.
		return nil, io.EOF
	}

	list, err := i.dir.ReadDir(1)
	if err != nil {
		return nil, err
	}

	return list[0], nil
}

// Close closes the directory file.
func (i *DirIterator) Close() error {
	if i.dir == nil {
		return nil
	}
	return i.dir.Close()
}
