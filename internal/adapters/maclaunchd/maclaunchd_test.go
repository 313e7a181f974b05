package maclaunchd

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	s := New(WithHomeDir("/Users/test"))
	if got := s.PlistPath(); got != "/Users/test/Library/LaunchAgents/com.user.genbak.plist" {
		t.Errorf("PlistPath() = %q", got)
	}
	if got := s.LogPath(); got != "/Users/test/.genbak/genbak.log" {
		t.Errorf("LogPath() = %q", got)
	}
}

func TestRenderPlist(t *testing.T) {
	s := New(WithHomeDir("/Users/test"))
	plist, err := s.RenderPlist("/usr/local/bin/genbak", "/docs/report.docx", "/docs/backup", 15)
	if err != nil {
		t.Fatalf("RenderPlist failed: %v", err)
	}

	for _, want := range []string{
		"<string>/usr/local/bin/genbak</string>",
		"<string>backup</string>",
		"<string>/docs/report.docx</string>",
		"<string>--root=/docs/backup</string>",
		"<integer>900</integer>",
		"<string>com.user.genbak</string>",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("plist missing %q", want)
		}
	}
}

func TestRenderPlistRejectsBadInterval(t *testing.T) {
	if _, err := New().RenderPlist("/bin/genbak", "/a", "/b", 0); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestInstallUninstall(t *testing.T) {
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	home := t.TempDir()
	s := New(WithHomeDir(home), WithLaunchctl(truePath))

	if s.IsInstalled() {
		t.Fatal("should not be installed yet")
	}
	if got := s.Status(); got != "not installed" {
		t.Errorf("Status() = %q", got)
	}

	if err := s.Install("/bin/genbak", "/docs/a.txt", "/docs/backup", 60); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !s.IsInstalled() {
		t.Error("expected installed after Install")
	}
	if got := s.Status(); got != "loaded" {
		t.Errorf("Status() = %q, expected loaded", got)
	}
	if _, err := os.Stat(filepath.Join(home, ".genbak")); err != nil {
		t.Errorf("log directory not created: %v", err)
	}

	if err := s.Uninstall(); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if s.IsInstalled() {
		t.Error("expected not installed after Uninstall")
	}
	if err := s.Uninstall(); err == nil {
		t.Error("second Uninstall should fail")
	}
}
