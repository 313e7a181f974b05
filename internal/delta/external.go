package delta

import (
	"context"
	"errors"
	"io/fs"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// Defaults for the external HDiffPatch tools.
const (
	DefaultDiffTool    = "hdiffz"
	DefaultPatchTool   = "hpatchz"
	DefaultCompression = "zstd"
)

// External delegates diffing and patching to the hdiffz and hpatchz tools.
type External struct {
	runner    ports.ToolRunner
	fs        ports.FileSystem
	diffTool  string
	patchTool string
	compress  string
}

var _ Codec = (*External)(nil)

// ExternalOption configures an External codec.
type ExternalOption func(*External)

// WithDiffTool sets the path of the diff tool.
func WithDiffTool(path string) ExternalOption {
	return func(e *External) {
		e.diffTool = path
	}
}

// WithPatchTool sets the path of the patch tool.
func WithPatchTool(path string) ExternalOption {
	return func(e *External) {
		e.patchTool = path
	}
}

// WithCompression sets the hdiffz compression method (zstd, lzma, zlib, ...).
// An empty method produces uncompressed deltas.
func WithCompression(method string) ExternalOption {
	return func(e *External) {
		e.compress = method
	}
}

// NewExternal creates an hdiff codec.
func NewExternal(runner ports.ToolRunner, fsys ports.FileSystem, opts ...ExternalOption) *External {
	e := &External{
		runner:    runner,
		fs:        fsys,
		diffTool:  DefaultDiffTool,
		patchTool: DefaultPatchTool,
		compress:  DefaultCompression,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Algorithm returns "hdiff".
func (e *External) Algorithm() string { return AlgorithmHdiff }

// Compressed returns a copy of e using compression method.
func (e *External) Compressed(method string) *External {
	c := *e
	c.compress = method
	return &c
}

// DiffArgs returns the diff tool arguments for one invocation.
func (e *External) DiffArgs(oldPath, newPath, diffPath string) []string {
	args := []string{"-f", "-s"}
	if e.compress != "" {
		args = append(args, "-c-"+e.compress)
	}
	return append(args, oldPath, newPath, diffPath)
}

// PatchArgs returns the patch tool arguments for one invocation.
func (e *External) PatchArgs(basePath, diffPath, outPath string) []string {
	return []string{"-f", "-s", basePath, diffPath, outPath}
}

// Produce runs the diff tool. A missing oldPath is replaced by an empty
// temporary file next to diffPath.
func (e *External) Produce(ctx context.Context, oldPath, newPath, diffPath string) error {
	if _, err := e.fs.Stat(newPath); err != nil {
		return backuperr.IO("stat", newPath, err)
	}

	if _, err := e.fs.Stat(oldPath); errors.Is(err, fs.ErrNotExist) {
		empty := diffPath + ".empty"
		if err := e.fs.WriteFile(empty, nil, 0644); err != nil {
			return backuperr.IO("write", empty, err)
		}
		defer e.fs.Remove(empty)
		oldPath = empty
	} else if err != nil {
		return backuperr.IO("stat", oldPath, err)
	}

	if err := e.run(ctx, e.diffTool, e.DiffArgs(oldPath, newPath, diffPath)...); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"old":      oldPath,
		"new":      newPath,
		"delta":    diffPath,
		"compress": e.compress,
	}).Debug("produced hdiff delta")
	return nil
}

// Apply runs the patch tool.
func (e *External) Apply(ctx context.Context, basePath, diffPath, outPath string) error {
	return e.run(ctx, e.patchTool, e.PatchArgs(basePath, diffPath, outPath)...)
}

func (e *External) run(ctx context.Context, tool string, args ...string) error {
	res, err := e.runner.Run(ctx, tool, args...)
	if err != nil {
		return backuperr.IO("run", tool, err)
	}
	if res.ExitCode != 0 {
		return &backuperr.ExternalToolError{
			Tool:     tool,
			ExitCode: res.ExitCode,
			Stderr:   string(res.Stderr),
		}
	}
	return nil
}
