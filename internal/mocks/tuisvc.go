package mocks

import (
	"os"

	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// MockTUIService implements ports.TUIService for testing.
type MockTUIService struct {
	// ConfigResult is the config to return from LoadConfig
	ConfigResult *config.Config
	// ConfigError is the error to return from LoadConfig
	ConfigError error

	// Generations is the list of generations to return
	Generations []ports.TUIGenerationInfo
	// GenerationsError is the error to return from ListGenerations
	GenerationsError error

	// Deltas maps generation indexes to their deltas
	Deltas map[int][]ports.TUIDeltaInfo
	// DeltasError is the error to return from ListDeltas
	DeltasError error

	// BackupResult is returned from RunBackup
	BackupResult ports.TUIBackupResult
	// RestoreResult is returned from Restore
	RestoreResult ports.TUIRestoreResult

	// Files maps paths to contents returned from ReadFile
	Files map[string][]byte

	// Call tracking
	LoadConfigCalls      int
	ListGenerationsCalls []string
	ListDeltasCalls      []int
	RunBackupCalls       []string
	RestoreCalls         [][]string
	ReadFileCalls        []string
}

// NewMockTUIService creates a new mock TUI service.
func NewMockTUIService() *MockTUIService {
	return &MockTUIService{
		ConfigResult: config.DefaultConfig(),
		Deltas:       make(map[int][]ports.TUIDeltaInfo),
		Files:        make(map[string][]byte),
	}
}

// LoadConfig loads the application configuration.
func (m *MockTUIService) LoadConfig() (*config.Config, error) {
	m.LoadConfigCalls++
	if m.ConfigError != nil {
		return nil, m.ConfigError
	}
	return m.ConfigResult, nil
}

// ListGenerations returns the configured generations.
func (m *MockTUIService) ListGenerations(cfg *config.Config, workFile string) ([]ports.TUIGenerationInfo, error) {
	m.ListGenerationsCalls = append(m.ListGenerationsCalls, workFile)
	if m.GenerationsError != nil {
		return nil, m.GenerationsError
	}
	return m.Generations, nil
}

// ListDeltas returns the configured deltas of a generation.
func (m *MockTUIService) ListDeltas(cfg *config.Config, workFile string, generation int) ([]ports.TUIDeltaInfo, error) {
	m.ListDeltasCalls = append(m.ListDeltasCalls, generation)
	if m.DeltasError != nil {
		return nil, m.DeltasError
	}
	return m.Deltas[generation], nil
}

// RunBackup records the call and returns BackupResult.
func (m *MockTUIService) RunBackup(cfg *config.Config, workFile string) ports.TUIBackupResult {
	m.RunBackupCalls = append(m.RunBackupCalls, workFile)
	return m.BackupResult
}

// Restore records the call and returns RestoreResult.
func (m *MockTUIService) Restore(cfg *config.Config, workFile string, deltaPaths []string) ports.TUIRestoreResult {
	m.RestoreCalls = append(m.RestoreCalls, append([]string(nil), deltaPaths...))
	return m.RestoreResult
}

// ReadFile returns the configured contents of path.
func (m *MockTUIService) ReadFile(path string) ([]byte, error) {
	m.ReadFileCalls = append(m.ReadFileCalls, path)
	if data, ok := m.Files[path]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

// Compile-time check that MockTUIService implements ports.TUIService.
var _ ports.TUIService = (*MockTUIService)(nil)
