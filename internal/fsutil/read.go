// Package fsutil holds the small file primitives shared by the status,
// checkpoint and template readers: directory-scoped reads and atomic
// replacement.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// openScoped opens the base name of path through an os.Root at its
// directory, so a crafted name cannot climb out of that directory.
func openScoped(path string) (*os.File, func(), error) {
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return nil, nil, fmt.Errorf("invalid file path: %q", path)
	}

	root, err := os.OpenRoot(filepath.Dir(cleaned))
	if err != nil {
		return nil, nil, err
	}
	f, err := root.Open(base)
	if err != nil {
		_ = root.Close()
		return nil, nil, err
	}
	return f, func() {
		_ = f.Close()
		_ = root.Close()
	}, nil
}

// ReadFileScoped reads a whole file through its directory root.
func ReadFileScoped(path string) ([]byte, error) {
	f, done, err := openScoped(path)
	if err != nil {
		return nil, err
	}
	defer done()
	return io.ReadAll(f)
}

// ReadFileLimit reads at most maxBytes from the start of a file. Longer
// files are cut silently; maxBytes <= 0 reads nothing.
func ReadFileLimit(path string, maxBytes int64) ([]byte, error) {
	f, done, err := openScoped(path)
	if err != nil {
		return nil, err
	}
	defer done()
	if maxBytes <= 0 {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(f, maxBytes))
}
