package mocks

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/mcdonaldj/genbak/internal/ports"
)

func TestMockFileSystem(t *testing.T) {
	mockFS := NewMockFileSystem()

	// Test WriteFile and ReadFile
	if err := mockFS.MkdirAll("/test", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := mockFS.WriteFile("/test/file.txt", []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	content, err := mockFS.ReadFile("/test/file.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, expected %q", string(content), "hello")
	}

	// Test Stat after WriteFile
	info, err := mockFS.Stat("/test/file.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, expected 5", info.Size())
	}

	// Test ReadFile for non-existent file
	if _, err := mockFS.ReadFile("/nonexistent"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile error = %v, expected not-exist", err)
	}

	// Test error injection
	mockFS.Errors["/error/path"] = errors.New("injected error")
	_, err = mockFS.ReadFile("/error/path")
	if err == nil || err.Error() != "injected error" {
		t.Errorf("Expected injected error, got: %v", err)
	}
}

func TestMockFileSystemFailOn(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.AddFile("/a/src", []byte("data"))
	mockFS.FailOn("CopyFile", "/a/src", errors.New("disk full"))

	if err := mockFS.CopyFile("/a/src", "/a/dst"); err == nil {
		t.Error("CopyFile should fail")
	}
	// Other operations on the same path are unaffected.
	if _, err := mockFS.ReadFile("/a/src"); err != nil {
		t.Errorf("ReadFile failed: %v", err)
	}
	if mockFS.Exists("/a/dst") {
		t.Error("failed copy should not create the destination")
	}

	want := []string{"CopyFile /a/src", "ReadFile /a/src"}
	if len(mockFS.Calls) != len(want) {
		t.Fatalf("Calls = %v, expected %v", mockFS.Calls, want)
	}
	for i := range want {
		if mockFS.Calls[i] != want[i] {
			t.Errorf("Calls[%d] = %q, expected %q", i, mockFS.Calls[i], want[i])
		}
	}
}

func TestMockFileSystemHelpers(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.AddDir("/root/base1_20240101_000000")
	mockFS.AddFile("/root/base1_20240101_000000/f.base", []byte("base"))
	mockFS.Errors["/root/base1_20240101_000000/f.base"] = errors.New("blocked")

	if !mockFS.Exists("/root/base1_20240101_000000/f.base") {
		t.Error("Exists should bypass error injection")
	}
	if got := string(mockFS.Content("/root/base1_20240101_000000/f.base")); got != "base" {
		t.Errorf("Content = %q, expected %q", got, "base")
	}
	if mockFS.Content("/missing") != nil {
		t.Error("Content of a missing file should be nil")
	}

	entries, err := mockFS.ReadDir("/root")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		t.Errorf("ReadDir = %v, expected one directory", entries)
	}
}

func TestMockToolRunner(t *testing.T) {
	runner := NewMockToolRunner()
	runner.Results["hdiffz"] = ports.ToolResult{ExitCode: 1, Stderr: []byte("bad input")}
	runner.Errors["hpatchz"] = errors.New("not found")

	var seen []string
	runner.OnRun = func(name string, args []string) {
		seen = append(seen, name)
	}

	res, err := runner.Run(context.Background(), "hdiffz", "-f", "a", "b")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 1 || string(res.Stderr) != "bad input" {
		t.Errorf("result = %+v", res)
	}

	if _, err := runner.Run(context.Background(), "hpatchz"); err == nil {
		t.Error("expected start error for hpatchz")
	}

	if len(runner.Calls) != 2 {
		t.Fatalf("len(Calls) = %d, expected 2", len(runner.Calls))
	}
	if got := runner.Calls[0].String(); got != "hdiffz -f a b" {
		t.Errorf("Calls[0] = %q", got)
	}
	if len(seen) != 1 || seen[0] != "hdiffz" {
		t.Errorf("OnRun saw %v, expected only hdiffz", seen)
	}
}

func TestMockArchiver(t *testing.T) {
	archiver := NewMockArchiver()
	archiver.ReadResults["/b/x.zip:x.txt"] = []byte("zipped")

	n, err := archiver.Create("/b/x.zip", []string{"/w/x.txt"})
	if err != nil || n != 1 {
		t.Errorf("Create = %d, %v", n, err)
	}
	if len(archiver.CreateCalls) != 1 || archiver.CreateCalls[0].DestPath != "/b/x.zip" {
		t.Errorf("CreateCalls = %+v", archiver.CreateCalls)
	}

	data, err := archiver.ReadFile("/b/x.zip", "x.txt")
	if err != nil || string(data) != "zipped" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
	if _, err := archiver.ReadFile("/b/x.zip", "other"); err == nil {
		t.Error("expected error for unknown entry")
	}

	archiver.Errors["Create"] = errors.New("no space")
	if _, err := archiver.Create("/b/y.zip", nil); err == nil {
		t.Error("expected injected Create error")
	}
}

func TestMockScheduler(t *testing.T) {
	sched := NewMockScheduler()
	if sched.IsInstalled() {
		t.Error("new scheduler should not be installed")
	}

	if err := sched.Install("/usr/local/bin/genbak", "/w/f.txt", "/w/backup", 30); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !sched.IsInstalled() || sched.Status() != "loaded" {
		t.Errorf("after Install: installed=%v status=%q", sched.IsInstalled(), sched.Status())
	}
	if len(sched.InstallCalls) != 1 || sched.InstallCalls[0].IntervalMinutes != 30 {
		t.Errorf("InstallCalls = %+v", sched.InstallCalls)
	}

	if err := sched.Uninstall(); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if sched.IsInstalled() {
		t.Error("scheduler should be uninstalled")
	}
}

func TestMockTUIService(t *testing.T) {
	svc := NewMockTUIService()
	svc.Generations = []ports.TUIGenerationInfo{{Index: 1}, {Index: 2}}
	svc.Deltas[2] = []ports.TUIDeltaInfo{{Name: "f.txt.20240101_000000.bsdiff.diff"}}
	svc.Files["/w/f_restored.txt"] = []byte("restored")

	cfg, err := svc.LoadConfig()
	if err != nil || cfg == nil {
		t.Fatalf("LoadConfig = %v, %v", cfg, err)
	}

	gens, _ := svc.ListGenerations(cfg, "/w/f.txt")
	if len(gens) != 2 {
		t.Errorf("len(gens) = %d, expected 2", len(gens))
	}
	deltas, _ := svc.ListDeltas(cfg, "/w/f.txt", 2)
	if len(deltas) != 1 {
		t.Errorf("len(deltas) = %d, expected 1", len(deltas))
	}
	if deltas, _ := svc.ListDeltas(cfg, "/w/f.txt", 1); len(deltas) != 0 {
		t.Errorf("generation 1 deltas = %v, expected none", deltas)
	}

	svc.Restore(cfg, "/w/f.txt", []string{"a", "b"})
	if len(svc.RestoreCalls) != 1 || len(svc.RestoreCalls[0]) != 2 {
		t.Errorf("RestoreCalls = %v", svc.RestoreCalls)
	}

	if data, err := svc.ReadFile("/w/f_restored.txt"); err != nil || string(data) != "restored" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
	if _, err := svc.ReadFile("/missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadFile(missing) error = %v", err)
	}

	svc.ConfigError = errors.New("bad yaml")
	if _, err := svc.LoadConfig(); err == nil {
		t.Error("expected config error")
	}
	if svc.LoadConfigCalls != 2 {
		t.Errorf("LoadConfigCalls = %d, expected 2", svc.LoadConfigCalls)
	}
}
