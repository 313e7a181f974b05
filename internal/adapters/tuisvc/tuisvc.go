// Package tuisvc provides the real implementation of ports.TUIService.
package tuisvc

import (
	"context"
	"fmt"

	"github.com/mcdonaldj/genbak/internal/adapters/aferofs"
	"github.com/mcdonaldj/genbak/internal/adapters/exectool"
	"github.com/mcdonaldj/genbak/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/genbak/internal/backup"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/history"
	"github.com/mcdonaldj/genbak/internal/ports"
	"github.com/mcdonaldj/genbak/internal/recovery"
)

// Service implements ports.TUIService on top of the backup and recovery
// services.
type Service struct {
	fs       ports.FileSystem
	runner   ports.ToolRunner
	archiver ports.Archiver
	clock    ports.Clock
}

// New creates a TUI service backed by the real filesystem and tools.
func New() *Service {
	return NewWithDeps(aferofs.NewOS(), exectool.New(), ziparchiver.New(), ports.SystemClock)
}

// NewWithDeps creates a TUI service with injected dependencies.
func NewWithDeps(fs ports.FileSystem, runner ports.ToolRunner, archiver ports.Archiver, clock ports.Clock) *Service {
	return &Service{fs: fs, runner: runner, archiver: archiver, clock: clock}
}

// LoadConfig loads the application configuration.
func (s *Service) LoadConfig() (*config.Config, error) {
	return config.Load()
}

// ListGenerations returns the generations kept for workFile, oldest first.
func (s *Service) ListGenerations(cfg *config.Config, workFile string) ([]ports.TUIGenerationInfo, error) {
	store := generation.NewStore(s.fs)
	gens, err := store.List(cfg.RootFor(workFile))
	if err != nil {
		return nil, err
	}

	result := make([]ports.TUIGenerationInfo, 0, len(gens))
	for _, gen := range gens {
		info := ports.TUIGenerationInfo{
			Index:     gen.Index,
			Dir:       gen.Dir,
			CreatedAt: gen.Timestamp,
		}
		if fi, err := s.fs.Stat(gen.BasePath(workFile)); err == nil {
			info.BaseSize = fi.Size()
			info.TotalSize = fi.Size()
		}

		paths, err := store.Deltas(gen, workFile)
		if err != nil {
			return nil, err
		}
		info.Deltas = len(paths)
		for _, p := range paths {
			if fi, err := s.fs.Stat(p); err == nil {
				info.TotalSize += fi.Size()
			}
		}
		result = append(result, info)
	}
	return result, nil
}

// ListDeltas returns the deltas of generation index, oldest first.
func (s *Service) ListDeltas(cfg *config.Config, workFile string, index int) ([]ports.TUIDeltaInfo, error) {
	entries, err := history.Scan(s.fs, cfg.RootFor(workFile), workFile)
	if err != nil {
		return nil, err
	}

	var result []ports.TUIDeltaInfo
	for _, e := range entries {
		if e.Kind != history.KindDelta || e.Generation != index {
			continue
		}
		result = append(result, ports.TUIDeltaInfo{
			Path:      e.Path,
			Name:      e.Name(),
			Size:      e.Size,
			Algorithm: e.Algorithm,
			CreatedAt: e.Timestamp,
			Note:      e.Note,
		})
	}
	return result, nil
}

// RunBackup backs up workFile into its current generation.
func (s *Service) RunBackup(cfg *config.Config, workFile string) ports.TUIBackupResult {
	svc := backup.NewService(s.fs, s.codecs(cfg), s.archiver, s.clock)
	res, err := svc.BackupOrDiff(context.Background(), backup.RequestFor(cfg, workFile))
	if err != nil {
		return ports.TUIBackupResult{Error: err}
	}
	return ports.TUIBackupResult{
		Generation: res.Generation.Index,
		DeltaPath:  res.DeltaPath,
		Size:       res.Size,
		Created:    res.Created,
		Rotated:    res.Rotated,
	}
}

// Restore replays deltaPaths in order.
func (s *Service) Restore(cfg *config.Config, workFile string, deltaPaths []string) ports.TUIRestoreResult {
	if len(deltaPaths) == 0 {
		return ports.TUIRestoreResult{Error: fmt.Errorf("no deltas selected")}
	}
	svc := recovery.NewService(s.fs, s.codecs(cfg), s.archiver)
	res, err := svc.Restore(context.Background(), workFile, deltaPaths)
	return ports.TUIRestoreResult{Output: res.Output, Applied: res.Applied, Error: err}
}

// ReadFile returns the contents of path.
func (s *Service) ReadFile(path string) ([]byte, error) {
	return s.fs.ReadFile(path)
}

func (s *Service) codecs(cfg *config.Config) *delta.Registry {
	return delta.New(cfg, s.fs, s.runner)
}

// Compile-time check that Service implements ports.TUIService.
var _ ports.TUIService = (*Service)(nil)
