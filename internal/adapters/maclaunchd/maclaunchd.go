// Package maclaunchd provides a launchd agent adapter for macOS that runs
// periodic backups of one working file.
package maclaunchd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/mcdonaldj/genbak/internal/ports"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.BinaryPath}}</string>
        <string>backup</string>
        <string>{{.WorkFile}}</string>
        <string>--root={{.Root}}</string>
    </array>
    <key>StartInterval</key>
    <integer>{{.IntervalSeconds}}</integer>
    <key>RunAtLoad</key>
    <false/>
    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{.LogPath}}</string>
</dict>
</plist>
`

const serviceLabel = "com.user.genbak"

type plistConfig struct {
	Label           string
	BinaryPath      string
	WorkFile        string
	Root            string
	IntervalSeconds int
	LogPath         string
}

// MacLaunchdService implements ports.Scheduler for macOS.
type MacLaunchdService struct {
	homeDir string
	// launchctl is the path to the launchctl binary.
	launchctl string
}

// Option is a functional option for configuring MacLaunchdService.
type Option func(*MacLaunchdService)

// WithHomeDir overrides the home directory used for plist and log paths.
func WithHomeDir(dir string) Option {
	return func(s *MacLaunchdService) {
		s.homeDir = dir
	}
}

// WithLaunchctl overrides the launchctl binary.
func WithLaunchctl(path string) Option {
	return func(s *MacLaunchdService) {
		s.launchctl = path
	}
}

// New creates a new MacLaunchdService adapter.
func New(opts ...Option) *MacLaunchdService {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	s := &MacLaunchdService{homeDir: home, launchctl: "launchctl"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlistPath returns the path where the plist file should be stored.
func (s *MacLaunchdService) PlistPath() string {
	return filepath.Join(s.homeDir, "Library", "LaunchAgents", serviceLabel+".plist")
}

// LogPath returns the path where logs should be written.
func (s *MacLaunchdService) LogPath() string {
	return filepath.Join(s.homeDir, ".genbak", "genbak.log")
}

// RenderPlist renders the agent definition without installing it.
func (s *MacLaunchdService) RenderPlist(binaryPath, workFile, root string, intervalMinutes int) (string, error) {
	if intervalMinutes <= 0 {
		return "", fmt.Errorf("interval must be positive, got %d minutes", intervalMinutes)
	}
	tmpl, err := template.New("plist").Parse(plistTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var b strings.Builder
	err = tmpl.Execute(&b, plistConfig{
		Label:           serviceLabel,
		BinaryPath:      binaryPath,
		WorkFile:        workFile,
		Root:            root,
		IntervalSeconds: intervalMinutes * 60,
		LogPath:         s.LogPath(),
	})
	if err != nil {
		return "", fmt.Errorf("writing plist: %w", err)
	}
	return b.String(), nil
}

// Install creates the plist file and loads the agent.
func (s *MacLaunchdService) Install(execPath, workFile, root string, intervalMinutes int) error {
	// Find genbak binary if not provided
	binaryPath := execPath
	if binaryPath == "" {
		var err error
		binaryPath, err = exec.LookPath("genbak")
		if err != nil {
			return fmt.Errorf("genbak not found in PATH: %w", err)
		}
	}

	plist, err := s.RenderPlist(binaryPath, workFile, root, intervalMinutes)
	if err != nil {
		return err
	}

	// Ensure log directory exists
	if err := os.MkdirAll(filepath.Dir(s.LogPath()), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	// Ensure LaunchAgents directory exists
	plistPath := s.PlistPath()
	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}

	if err := os.WriteFile(plistPath, []byte(plist), 0644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}

	if err := exec.Command(s.launchctl, "load", plistPath).Run(); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	return nil
}

// Uninstall unloads the agent and removes the plist file.
func (s *MacLaunchdService) Uninstall() error {
	plistPath := s.PlistPath()

	if _, err := os.Stat(plistPath); os.IsNotExist(err) {
		return fmt.Errorf("plist not found: %s", plistPath)
	}

	_ = exec.Command(s.launchctl, "unload", plistPath).Run() // Ignore error if not loaded

	if err := os.Remove(plistPath); err != nil {
		return fmt.Errorf("removing plist: %w", err)
	}
	return nil
}

// IsInstalled checks if the agent is currently installed.
func (s *MacLaunchdService) IsInstalled() bool {
	_, err := os.Stat(s.PlistPath())
	return err == nil
}

// Status returns "loaded", "not loaded" or "not installed".
func (s *MacLaunchdService) Status() string {
	if !s.IsInstalled() {
		return "not installed"
	}
	if err := exec.Command(s.launchctl, "list", serviceLabel).Run(); err == nil {
		return "loaded"
	}
	return "not loaded"
}

// Compile-time check that MacLaunchdService implements ports.Scheduler.
var _ ports.Scheduler = (*MacLaunchdService)(nil)
