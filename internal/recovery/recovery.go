// Package recovery rebuilds the working file from backups: replaying delta
// chains against their base snapshots, or restoring a full copy or archive.
package recovery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/genbak/internal/adapters/aferofs"
	"github.com/mcdonaldj/genbak/internal/adapters/exectool"
	"github.com/mcdonaldj/genbak/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/chain"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// AutoOutputPath returns where restores of workFile are written:
// <dir>/<stem>_restored<ext>. The working file itself is never overwritten.
func AutoOutputPath(workFile string) string {
	dir := filepath.Dir(workFile)
	name := filepath.Base(workFile)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, stem+"_restored"+ext)
}

// Result describes how far a replay got.
type Result struct {
	// Output is the file written by the last successful step, or "" if no
	// step succeeded.
	Output string
	// Applied is the number of deltas applied successfully.
	Applied int
}

// Service provides recovery operations with injected dependencies.
type Service struct {
	fs         ports.FileSystem
	resolver   *chain.Resolver
	codecs     *delta.Registry
	archiver   ports.Archiver
	outputPath string
}

// Option configures a Service.
type Option func(*Service)

// WithOutputPath writes restores to path instead of AutoOutputPath.
func WithOutputPath(path string) Option {
	return func(s *Service) {
		s.outputPath = path
	}
}

// NewService creates a new recovery service with the given dependencies.
func NewService(fs ports.FileSystem, codecs *delta.Registry, archiver ports.Archiver, opts ...Option) *Service {
	s := &Service{
		fs:       fs,
		resolver: chain.NewResolver(fs),
		codecs:   codecs,
		archiver: archiver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDefaultService creates a recovery service with real production dependencies.
func NewDefaultService(cfg *config.Config, opts ...Option) *Service {
	fs := aferofs.NewOS()
	return NewService(fs, delta.New(cfg, fs, exectool.New()), ziparchiver.New(), opts...)
}

// OutputPath returns where restores of workFile are written.
func (s *Service) OutputPath(workFile string) string {
	if s.outputPath != "" {
		return s.outputPath
	}
	return AutoOutputPath(workFile)
}

// Restore applies deltaPaths in order, each against the base snapshot it was
// produced from, writing each result to the output path. Replay stops at the
// first failing step and returns its error unchanged; Result still reports
// the last successful output. ctx is checked between steps only. A workFile
// with no name component is rejected before any I/O.
func (s *Service) Restore(ctx context.Context, workFile string, deltaPaths []string) (Result, error) {
	var res Result
	if _, err := generation.BaseName(workFile); err != nil {
		return res, err
	}
	out := s.OutputPath(workFile)

	for i, deltaPath := range deltaPaths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		logger := log.WithFields(log.Fields{
			"step":  i + 1,
			"of":    len(deltaPaths),
			"delta": deltaPath,
		})

		resolved, err := s.resolver.Resolve(workFile, deltaPath)
		if err != nil {
			logger.WithError(err).Warn("replay stopped")
			return res, err
		}
		codec, err := s.codecs.ForArtifact(filepath.Base(deltaPath))
		if err != nil {
			logger.WithError(err).Warn("replay stopped")
			return res, err
		}
		if err := codec.Apply(ctx, resolved.BasePath, deltaPath, out); err != nil {
			logger.WithError(err).Warn("replay stopped")
			return res, err
		}

		res.Output = out
		res.Applied++
		logger.WithField("base", resolved.BasePath).Info("applied delta")
	}
	return res, nil
}

// RestoreFull restores a full backup of workFile: a plain copy is copied,
// a .zip archive has the working file's entry extracted. Returns the path
// written.
func (s *Service) RestoreFull(workFile, backupPath string) (string, error) {
	if _, err := generation.BaseName(workFile); err != nil {
		return "", err
	}
	out := s.OutputPath(workFile)

	if !strings.EqualFold(filepath.Ext(backupPath), ".zip") {
		if err := s.fs.CopyFile(backupPath, out); err != nil {
			return "", backuperr.IO("restore", backupPath, err)
		}
		return out, nil
	}

	entry, err := s.archiveEntry(workFile, backupPath)
	if err != nil {
		return "", err
	}
	data, err := s.archiver.ReadFile(backupPath, entry)
	if err != nil {
		return "", backuperr.IO("extract", backupPath, err)
	}
	if err := s.fs.WriteFile(out, data, 0644); err != nil {
		return "", backuperr.IO("write", out, err)
	}
	return out, nil
}

// archiveEntry picks the entry holding workFile: its own name, or the only
// entry of a single-file archive.
func (s *Service) archiveEntry(workFile, zipPath string) (string, error) {
	entries, err := s.archiver.List(zipPath)
	if err != nil {
		return "", backuperr.IO("list", zipPath, err)
	}
	name := filepath.Base(workFile)
	if _, ok := entries[name]; ok {
		return name, nil
	}
	if len(entries) == 1 {
		for only := range entries {
			return only, nil
		}
	}
	return "", backuperr.IO("extract", zipPath, fmt.Errorf("archive has no entry for %s", name))
}
