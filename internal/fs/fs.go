package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrAtomicRenameUnsupported reports that the underlying filesystem cannot
// atomically replace the rename target. Callers fall back to a copy.
var ErrAtomicRenameUnsupported = errors.New("atomic rename not supported")

// File represents an open file.
type File interface {
	io.ReadWriteCloser
	Sync() error
	Stat() (os.FileInfo, error)
	Name() string
}

// FileSystem abstracts file system operations for testability.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	CreateTemp(dir, pattern string) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	ReadDir(name string) ([]os.DirEntry, error)
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm) //nolint:gosec // G304: partition paths are derived from keys
}

func (LocalFS) CreateTemp(dir, pattern string) (File, error) {
	return os.CreateTemp(dir, pattern)
}

func (LocalFS) Remove(name string) error              { return os.Remove(name) }
func (LocalFS) Rename(oldpath, newpath string) error  { return os.Rename(oldpath, newpath) }
func (LocalFS) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }
func (LocalFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
func (LocalFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// Default is the default local file system.
var Default FileSystem = LocalFS{}

// Replace moves src over dst, replacing dst if it exists.
//
// The rename is attempted first. If the filesystem reports that it cannot
// rename atomically, the contents of src are copied into dst and src is
// removed afterwards. A failed copy removes dst so no torn file stays behind;
// src is left in place. src must be fully written and closed before calling.
// The returned bool reports whether the atomic path was taken.
func Replace(fsys FileSystem, src, dst string) (bool, error) {
	err := fsys.Rename(src, dst)
	if err == nil {
		return true, nil
	}
	if !IsAtomicRenameUnsupported(err) {
		return false, err
	}
	if err := copyFile(fsys, src, dst); err != nil {
		_ = fsys.Remove(dst)
		return false, err
	}
	return false, fsys.Remove(src)
}

func copyFile(fsys FileSystem, src, dst string) error {
	in, err := fsys.OpenFile(src, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fsys.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// SyncDir syncs a directory so that creates and renames inside it are durable.
func SyncDir(fsys FileSystem, dir string) error {
	f, err := fsys.OpenFile(filepath.Clean(dir), os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Sync()
}
