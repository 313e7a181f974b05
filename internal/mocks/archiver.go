package mocks

import (
	"fmt"

	"github.com/mcdonaldj/genbak/internal/ports"
)

// MockArchiver implements ports.Archiver for testing.
type MockArchiver struct {
	// CreateCalls records calls to Create
	CreateCalls []CreateCall
	// ListResults maps zip paths to entry listings
	ListResults map[string]map[string]ports.FileInfo
	// ReadResults maps "zipPath:name" to content
	ReadResults map[string][]byte
	// Errors maps method names to errors
	Errors map[string]error
}

// CreateCall records parameters of a Create call.
type CreateCall struct {
	DestPath string
	Files    []string
}

// NewMockArchiver creates a new mock archiver.
func NewMockArchiver() *MockArchiver {
	return &MockArchiver{
		ListResults: make(map[string]map[string]ports.FileInfo),
		ReadResults: make(map[string][]byte),
		Errors:      make(map[string]error),
	}
}

// Create records the call and returns len(files).
func (m *MockArchiver) Create(destPath string, files []string) (int, error) {
	m.CreateCalls = append(m.CreateCalls, CreateCall{
		DestPath: destPath,
		Files:    append([]string(nil), files...),
	})
	if err, ok := m.Errors["Create"]; ok {
		return 0, err
	}
	return len(files), nil
}

// List returns the configured listing for zipPath.
func (m *MockArchiver) List(zipPath string) (map[string]ports.FileInfo, error) {
	if err, ok := m.Errors["List"]; ok {
		return nil, err
	}
	if result, ok := m.ListResults[zipPath]; ok {
		return result, nil
	}
	return make(map[string]ports.FileInfo), nil
}

// ReadFile returns the configured content for name inside zipPath.
func (m *MockArchiver) ReadFile(zipPath, name string) ([]byte, error) {
	if err, ok := m.Errors["ReadFile"]; ok {
		return nil, err
	}
	if content, ok := m.ReadResults[zipPath+":"+name]; ok {
		return content, nil
	}
	return nil, fmt.Errorf("%s: no entry %q", zipPath, name)
}

// Compile-time check that MockArchiver implements ports.Archiver.
var _ ports.Archiver = (*MockArchiver)(nil)
