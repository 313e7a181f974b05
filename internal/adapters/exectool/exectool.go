// Package exectool provides an external tool runner adapter using exec.CommandContext.
package exectool

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/mcdonaldj/genbak/internal/ports"
	"github.com/pkg/errors"
)

// ExecRunner implements ports.ToolRunner using exec.CommandContext.
type ExecRunner struct {
	// dir is the working directory of spawned tools. Empty means inherit.
	dir string
	// env is appended to the inherited environment.
	env []string
}

// Option is a functional option for configuring ExecRunner.
type Option func(*ExecRunner)

// WithDir sets the working directory of spawned tools.
func WithDir(dir string) Option {
	return func(r *ExecRunner) {
		r.dir = dir
	}
}

// WithEnv appends KEY=VALUE pairs to the environment of spawned tools.
func WithEnv(env ...string) Option {
	return func(r *ExecRunner) {
		r.env = append(r.env, env...)
	}
}

// New creates a new ExecRunner adapter.
func New(opts ...Option) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes name with args, capturing stdout and stderr, and waits for
// it to exit. A non-zero exit status is not an error.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (ports.ToolResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir
	if len(r.env) > 0 {
		cmd.Env = append(os.Environ(), r.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ports.ToolResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, errors.WithMessagef(err, "running %s", name)
	}
	return result, nil
}

// Compile-time check that ExecRunner implements ports.ToolRunner.
var _ ports.ToolRunner = (*ExecRunner)(nil)
