// Package hostfs implements spec.md §6's "hosted file system" contract —
// Create/Open/Remove plus positional ReadAt/WriteAt — against the real
// operating system file system the simulator process runs on.
package hostfs

import (
	"fmt"
	"os"
)

// Disk is the subset of file-system operations the swap store needs.
// Positional reads/writes are satisfied per-platform (see pread_linux.go and
// pread_other.go) so the swap store never has to serialize access through a
// single file offset.
type Disk interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Close() error
}

// File is the concrete Disk implementation backing a swap file.
type File struct {
	f *os.File
}

// Create creates (or truncates) the file at path and sizes it to exactly
// size bytes, per spec.md §6 ("size exactly SWAP_SECTORS * PageSize bytes").
func Create(path string, size int64) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("hostfs: create %s: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("hostfs: size %s to %d bytes: %w", path, size, err)
	}
	return &File{f: f}, nil
}

// Open opens an existing file at path for positional I/O.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("hostfs: open %s: %w", path, err)
	}
	return &File{f: f}, nil
}

// Remove deletes the file at path. Per spec.md §6, the swap file's content
// is not portable across runs, so teardown always removes it rather than
// leaving it for the next run to reuse.
func Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("hostfs: remove %s: %w", path, err)
	}
	return nil
}

// Close closes the underlying OS file handle.
func (f *File) Close() error {
	return f.f.Close()
}
