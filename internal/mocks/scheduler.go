package mocks

import (
	"github.com/mcdonaldj/genbak/internal/ports"
)

// MockScheduler implements ports.Scheduler for testing.
type MockScheduler struct {
	// Installed tracks whether the agent is "installed"
	Installed bool
	// StatusResult is the status to return
	StatusResult string
	// PlistPathResult is the plist path to return
	PlistPathResult string
	// LogPathResult is the log path to return
	LogPathResult string
	// InstallCalls records calls to Install
	InstallCalls []InstallCall
	// Errors maps method names to errors
	Errors map[string]error
}

// InstallCall records parameters of an Install call.
type InstallCall struct {
	ExecPath        string
	WorkFile        string
	Root            string
	IntervalMinutes int
}

// NewMockScheduler creates a new mock scheduler.
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		StatusResult:    "not installed",
		PlistPathResult: "/tmp/mock.plist",
		LogPathResult:   "/tmp/mock.log",
		Errors:          make(map[string]error),
	}
}

// PlistPath returns the path where the plist file should be stored.
func (m *MockScheduler) PlistPath() string {
	return m.PlistPathResult
}

// LogPath returns the path where logs should be written.
func (m *MockScheduler) LogPath() string {
	return m.LogPathResult
}

// Install records the call and marks the agent loaded.
func (m *MockScheduler) Install(execPath, workFile, root string, intervalMinutes int) error {
	m.InstallCalls = append(m.InstallCalls, InstallCall{
		ExecPath:        execPath,
		WorkFile:        workFile,
		Root:            root,
		IntervalMinutes: intervalMinutes,
	})
	if err, ok := m.Errors["Install"]; ok {
		return err
	}
	m.Installed = true
	m.StatusResult = "loaded"
	return nil
}

// Uninstall marks the agent removed.
func (m *MockScheduler) Uninstall() error {
	if err, ok := m.Errors["Uninstall"]; ok {
		return err
	}
	m.Installed = false
	m.StatusResult = "not installed"
	return nil
}

// IsInstalled checks if the agent is currently installed.
func (m *MockScheduler) IsInstalled() bool {
	return m.Installed
}

// Status returns the current status of the agent.
func (m *MockScheduler) Status() string {
	return m.StatusResult
}

// Compile-time check that MockScheduler implements ports.Scheduler.
var _ ports.Scheduler = (*MockScheduler)(nil)
