// Package aferofs provides a filesystem adapter over spf13/afero.
package aferofs

import (
	"io"
	"io/fs"
	"os"

	"github.com/mcdonaldj/genbak/internal/ports"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileSystem implements ports.FileSystem on top of an afero.Fs.
type FileSystem struct {
	fs afero.Fs
}

// New creates a FileSystem adapter backed by fs.
func New(fs afero.Fs) *FileSystem {
	return &FileSystem{fs: fs}
}

// NewOS creates a FileSystem adapter backed by the operating system.
func NewOS() *FileSystem {
	return New(afero.NewOsFs())
}

// NewMem creates a FileSystem adapter backed by memory. Used by tests.
func NewMem() *FileSystem {
	return New(afero.NewMemMapFs())
}

// Afero returns the underlying afero.Fs.
func (f *FileSystem) Afero() afero.Fs {
	return f.fs
}

// ReadDir reads the named directory and returns directory entries sorted by name.
func (f *FileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	infos, err := afero.ReadDir(f.fs, name)
	if err != nil {
		return nil, err
	}
	entries := make([]os.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, nil
}

// Stat returns file info for the named file.
func (f *FileSystem) Stat(name string) (os.FileInfo, error) {
	return f.fs.Stat(name)
}

// Mkdir creates a single directory.
func (f *FileSystem) Mkdir(path string, perm os.FileMode) error {
	return f.fs.Mkdir(path, perm)
}

// MkdirAll creates a directory along with any necessary parents.
func (f *FileSystem) MkdirAll(path string, perm os.FileMode) error {
	return f.fs.MkdirAll(path, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (f *FileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(f.fs, name, data, perm)
}

// ReadFile reads the named file and returns the contents.
func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(f.fs, name)
}

// CopyFile copies src to dst, keeping the permission bits of src.
func (f *FileSystem) CopyFile(src, dst string) error {
	in, err := f.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.Errorf("%s is a directory", src)
	}

	out, err := f.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close() // Best effort cleanup on error path
		return errors.WithMessage(err, "copying file contents")
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return errors.WithMessage(err, "syncing copy")
	}
	return out.Close()
}

// Remove removes the named file or empty directory.
func (f *FileSystem) Remove(name string) error {
	return f.fs.Remove(name)
}

// Rename renames (moves) oldpath to newpath.
func (f *FileSystem) Rename(oldpath, newpath string) error {
	return f.fs.Rename(oldpath, newpath)
}

// Compile-time check that FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
