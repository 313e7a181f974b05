// Package backup takes backups of a working file: generation deltas, plain
// copies and zip archives.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/mcdonaldj/genbak/internal/adapters/aferofs"
	"github.com/mcdonaldj/genbak/internal/adapters/exectool"
	"github.com/mcdonaldj/genbak/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/history"
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// Request describes one "back up now" call.
type Request struct {
	WorkFile  string
	Root      string
	Algorithm string
	// Compress overrides the hdiff compression method when set.
	Compress  string
	Threshold float64
}

// Result describes a delta backup.
type Result struct {
	Generation generation.Generation
	DeltaPath  string
	// Created is set when this call created the generation.
	Created bool
	// Rotated is set when the previous generation's deltas had grown past
	// the threshold and a new generation was started.
	Rotated bool
	Size    int64
}

// Service provides backup operations with injected dependencies.
type Service struct {
	fs       ports.FileSystem
	store    *generation.Store
	codecs   *delta.Registry
	archiver ports.Archiver
	clock    ports.Clock
}

// NewService creates a new backup service with the given dependencies.
func NewService(fs ports.FileSystem, codecs *delta.Registry, archiver ports.Archiver, clock ports.Clock) *Service {
	return &Service{
		fs:       fs,
		store:    generation.NewStore(fs, generation.WithClock(clock)),
		codecs:   codecs,
		archiver: archiver,
		clock:    clock,
	}
}

// NewDefaultService creates a backup service with real production dependencies.
func NewDefaultService(cfg *config.Config) *Service {
	fs := aferofs.NewOS()
	return NewService(fs, delta.New(cfg, fs, exectool.New()), ziparchiver.New(), ports.SystemClock)
}

// RequestFor builds a Request for workFile from cfg.
func RequestFor(cfg *config.Config, workFile string) Request {
	return Request{
		WorkFile:  workFile,
		Root:      cfg.RootFor(workFile),
		Algorithm: cfg.Algorithm,
		Threshold: cfg.Threshold,
	}
}

// BackupOrDiff records the current state of the working file as a delta
// against the latest generation's base. The first call creates generation 1.
// When the generation's newest delta exceeds the threshold relative to its
// base, or the generation holds no base for this working file, a new
// generation is started from the working file first.
func (s *Service) BackupOrDiff(ctx context.Context, req Request) (Result, error) {
	if _, err := generation.BaseName(req.WorkFile); err != nil {
		return Result{}, err
	}
	if _, err := s.fs.Stat(req.WorkFile); err != nil {
		return Result{}, backuperr.IO("stat", req.WorkFile, err)
	}

	codec, err := s.codecs.Get(req.Algorithm)
	if err != nil {
		return Result{}, err
	}
	if ext, ok := codec.(*delta.External); ok && req.Compress != "" {
		codec = ext.Compressed(req.Compress)
	}

	existing, err := s.store.FindLatest(req.Root)
	if err != nil {
		return Result{}, err
	}
	gen, idx, err := s.store.ResolveOrCreate(req.Root, req.WorkFile)
	if err != nil {
		return Result{}, err
	}
	res := Result{Generation: gen, Created: existing == nil}

	logger := log.WithFields(log.Fields{
		"work":       req.WorkFile,
		"generation": idx,
	})

	if !res.Created {
		if _, err := s.fs.Stat(gen.BasePath(req.WorkFile)); err != nil {
			next, err := s.store.Create(req.Root, idx+1, req.WorkFile)
			if err != nil {
				return Result{}, err
			}
			logger.WithFields(log.Fields{
				"base": gen.BasePath(req.WorkFile),
				"next": next.Index,
			}).Info("latest generation has no base for working file, started new generation")
			res.Generation = next
			res.Created = true
		} else {
			latest, err := s.store.LatestDelta(gen, req.WorkFile)
			if err != nil {
				return Result{}, err
			}
			if generation.ShouldRotate(s.fs, gen.BasePath(req.WorkFile), latest, req.Threshold) {
				next, err := s.store.Create(req.Root, idx+1, req.WorkFile)
				if err != nil {
					return Result{}, err
				}
				logger.WithFields(log.Fields{
					"delta":     latest,
					"threshold": req.Threshold,
					"next":      next.Index,
				}).Info("delta outgrew threshold, rotated to new generation")
				res.Generation = next
				res.Rotated = true
			}
		}
	}

	name := delta.ArtifactName(filepath.Base(req.WorkFile), s.clock.Now(), codec.Algorithm())
	deltaPath := filepath.Join(res.Generation.Dir, name)
	if _, err := s.fs.Stat(deltaPath); err == nil {
		return Result{}, backuperr.IO("create", deltaPath, os.ErrExist)
	}

	if err := codec.Produce(ctx, res.Generation.BasePath(req.WorkFile), req.WorkFile, deltaPath); err != nil {
		return Result{}, err
	}

	info, err := s.fs.Stat(deltaPath)
	if err != nil {
		return Result{}, backuperr.IO("stat", deltaPath, err)
	}
	res.DeltaPath = deltaPath
	res.Size = info.Size()

	logger.WithFields(log.Fields{
		"delta": deltaPath,
		"size":  res.Size,
	}).Info("backed up")
	return res, nil
}

// CopyBackup copies the working file into root as
// <stem>_<YYYYMMDD_HHMMSS><ext>. Returns the copy's path.
func (s *Service) CopyBackup(workFile, root string) (string, error) {
	if _, err := generation.BaseName(workFile); err != nil {
		return "", err
	}
	dest := filepath.Join(root, history.FullName(workFile, s.clock.Now(), false))
	if err := s.prepare(root, dest); err != nil {
		return "", err
	}
	if err := s.fs.CopyFile(workFile, dest); err != nil {
		return "", backuperr.IO("copy", workFile, err)
	}
	return dest, nil
}

// ArchiveBackup zips the working file into root as
// <stem>_<YYYYMMDD_HHMMSS>.zip. Returns the archive's path.
func (s *Service) ArchiveBackup(workFile, root string) (string, error) {
	if _, err := generation.BaseName(workFile); err != nil {
		return "", err
	}
	dest := filepath.Join(root, history.FullName(workFile, s.clock.Now(), true))
	if err := s.prepare(root, dest); err != nil {
		return "", err
	}
	if _, err := s.archiver.Create(dest, []string{workFile}); err != nil {
		return "", backuperr.IO("archive", workFile, err)
	}
	return dest, nil
}

func (s *Service) prepare(root, dest string) error {
	if err := s.fs.MkdirAll(root, 0755); err != nil {
		return backuperr.IO("create", root, err)
	}
	if _, err := s.fs.Stat(dest); err == nil {
		return backuperr.IO("create", dest, os.ErrExist)
	}
	return nil
}

// FormatSize formats bytes as human-readable
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return humanize.IBytes(uint64(bytes))
}
