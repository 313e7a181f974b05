// Package backuperr defines the typed failures surfaced by the backup core.
//
// Each kind renders a message specific enough for a user to tell a disk
// problem from a corrupt delta from a missing base. None of them are retried
// by the core.
package backuperr

import (
	"errors"
	"fmt"
	"strings"
)

// IOError is a filesystem read/write/create failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("disk error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CodecError is a delta format or content mismatch: a truncated or corrupt
// delta, or a delta applied against a base it was not produced from.
type CodecError struct {
	Op   string
	Path string
	Err  error
}

func (e *CodecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("delta error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("delta error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// ExternalToolError is a non-zero exit of an external delta tool.
type ExternalToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, msg)
}

// MissingBaseError means no base snapshot could be located for a delta.
// GuessedName is the base name inferred from the delta's file name.
type MissingBaseError struct {
	GuessedName string
}

func (e *MissingBaseError) Error() string {
	return fmt.Sprintf("base file (.base) not found: %s", e.GuessedName)
}

// InvalidNameError is a working file path without a file name component.
type InvalidNameError struct {
	Path string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid work file name: %q", e.Path)
}

// Sentinel values usable with errors.Is in codec implementations.
var (
	ErrWrongBase    = errors.New("delta was produced from a different base file")
	ErrCorruptDelta = errors.New("delta is truncated or corrupt")
	ErrTooLarge     = errors.New("file exceeds the configured size limit")

	ErrUnknownAlgorithm = errors.New("unsupported delta algorithm")
)

// IO wraps err as an IOError.
func IO(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

// Codec wraps err as a CodecError.
func Codec(op, path string, err error) error {
	return &CodecError{Op: op, Path: path, Err: err}
}

// Kind returns a short label for the error taxonomy member err belongs to,
// or "" when err is not one of them.
func Kind(err error) string {
	var (
		ioErr      *IOError
		codecErr   *CodecError
		toolErr    *ExternalToolError
		missingErr *MissingBaseError
		nameErr    *InvalidNameError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &missingErr):
		return "missing-base"
	case errors.As(err, &nameErr):
		return "invalid-name"
	case errors.As(err, &codecErr):
		return "codec"
	case errors.As(err, &toolErr):
		return "tool"
	case errors.As(err, &ioErr):
		return "io"
	default:
		return ""
	}
}
