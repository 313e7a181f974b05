// Package mocks provides mock implementations for testing.
package mocks

import (
	"os"
	"path/filepath"

	"github.com/mcdonaldj/genbak/internal/adapters/aferofs"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// MockFileSystem implements ports.FileSystem over an in-memory afero
// filesystem, with injectable failures.
type MockFileSystem struct {
	*aferofs.FileSystem

	// Errors maps paths to errors returned by every operation on that path.
	Errors map[string]error
	// OpErrors maps "Op path" (for example "WriteFile /b/x.diff") to errors
	// returned only by that operation.
	OpErrors map[string]error
	// Calls records "Op path" for every call, in order.
	Calls []string
}

// NewMockFileSystem creates an empty in-memory mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		FileSystem: aferofs.NewMem(),
		Errors:     make(map[string]error),
		OpErrors:   make(map[string]error),
	}
}

// FailOn makes op fail with err for path.
func (m *MockFileSystem) FailOn(op, path string, err error) {
	m.OpErrors[op+" "+path] = err
}

func (m *MockFileSystem) check(op string, paths ...string) error {
	for _, p := range paths {
		m.Calls = append(m.Calls, op+" "+p)
		if err, ok := m.OpErrors[op+" "+p]; ok {
			return err
		}
		if err, ok := m.Errors[p]; ok {
			return err
		}
	}
	return nil
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if err := m.check("ReadDir", name); err != nil {
		return nil, err
	}
	return m.FileSystem.ReadDir(name)
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err := m.check("Stat", name); err != nil {
		return nil, err
	}
	return m.FileSystem.Stat(name)
}

// Mkdir creates a single directory.
func (m *MockFileSystem) Mkdir(path string, perm os.FileMode) error {
	if err := m.check("Mkdir", path); err != nil {
		return err
	}
	return m.FileSystem.Mkdir(path, perm)
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := m.check("MkdirAll", path); err != nil {
		return err
	}
	return m.FileSystem.MkdirAll(path, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := m.check("WriteFile", name); err != nil {
		return err
	}
	return m.FileSystem.WriteFile(name, data, perm)
}

// ReadFile reads the named file and returns the contents.
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if err := m.check("ReadFile", name); err != nil {
		return nil, err
	}
	return m.FileSystem.ReadFile(name)
}

// CopyFile copies src to dst.
func (m *MockFileSystem) CopyFile(src, dst string) error {
	if err := m.check("CopyFile", src, dst); err != nil {
		return err
	}
	return m.FileSystem.CopyFile(src, dst)
}

// Remove removes the named file or empty directory.
func (m *MockFileSystem) Remove(name string) error {
	if err := m.check("Remove", name); err != nil {
		return err
	}
	return m.FileSystem.Remove(name)
}

// Rename renames (moves) oldpath to newpath.
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if err := m.check("Rename", oldpath, newpath); err != nil {
		return err
	}
	return m.FileSystem.Rename(oldpath, newpath)
}

// AddFile writes a file, creating parent directories. Test setup helper
// that bypasses error injection.
func (m *MockFileSystem) AddFile(path string, content []byte) {
	_ = m.FileSystem.MkdirAll(filepath.Dir(path), 0755)
	_ = m.FileSystem.WriteFile(path, content, 0644)
}

// AddDir creates a directory. Test setup helper that bypasses error injection.
func (m *MockFileSystem) AddDir(path string) {
	_ = m.FileSystem.MkdirAll(path, 0755)
}

// Exists reports whether path exists, bypassing error injection.
func (m *MockFileSystem) Exists(path string) bool {
	_, err := m.FileSystem.Stat(path)
	return err == nil
}

// Content returns the contents of path, or nil if it cannot be read.
func (m *MockFileSystem) Content(path string) []byte {
	data, err := m.FileSystem.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
