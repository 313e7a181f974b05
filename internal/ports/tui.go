package ports

import (
	"time"

	"github.com/mcdonaldj/genbak/internal/config"
)

// TUIGenerationInfo contains generation metadata for display.
type TUIGenerationInfo struct {
	Index     int
	Dir       string
	CreatedAt time.Time
	BaseSize  int64
	Deltas    int
	TotalSize int64
}

// TUIDeltaInfo contains delta artifact metadata for display.
type TUIDeltaInfo struct {
	Path      string
	Name      string
	Size      int64
	Algorithm string
	CreatedAt time.Time
	Note      string
}

// TUIBackupResult contains the result of a backup operation.
type TUIBackupResult struct {
	Generation int
	DeltaPath  string
	Size       int64
	Created    bool
	Rotated    bool
	Error      error
}

// TUIRestoreResult contains the result of a replay.
type TUIRestoreResult struct {
	Output  string
	Applied int
	Error   error
}

// TUIService provides operations needed by the TUI.
// This abstraction allows the TUI to be tested without real filesystem/backup operations.
type TUIService interface {
	// LoadConfig loads the application configuration.
	LoadConfig() (*config.Config, error)

	// ListGenerations returns the generations kept for workFile, oldest first.
	ListGenerations(cfg *config.Config, workFile string) ([]TUIGenerationInfo, error)

	// ListDeltas returns the deltas of one generation, oldest first.
	ListDeltas(cfg *config.Config, workFile string, generation int) ([]TUIDeltaInfo, error)

	// RunBackup backs up workFile into its current generation.
	RunBackup(cfg *config.Config, workFile string) TUIBackupResult

	// Restore replays deltaPaths in order and reports the last output.
	Restore(cfg *config.Config, workFile string, deltaPaths []string) TUIRestoreResult

	// ReadFile returns the contents of path, for previews.
	ReadFile(path string) ([]byte, error)
}
