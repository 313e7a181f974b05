package delta

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxFileSize is the largest file Binary will diff or patch.
const DefaultMaxFileSize int64 = 100 << 20

// DefaultBaseCacheSize is the number of base snapshots Binary keeps in memory.
const DefaultBaseCacheSize = 4

// Binary is the in-process bsdiff codec.
type Binary struct {
	fs          ports.FileSystem
	maxFileSize int64
	bases       *lru.Cache
}

var _ Codec = (*Binary)(nil)

// BinaryOption configures a Binary codec.
type BinaryOption func(*Binary)

// WithMaxFileSize sets the size limit for old, new and base files.
// Zero or negative disables the limit.
func WithMaxFileSize(n int64) BinaryOption {
	return func(b *Binary) {
		b.maxFileSize = n
	}
}

// WithBaseCacheSize sets how many base snapshots are kept in memory
// between Apply calls. Zero disables caching.
func WithBaseCacheSize(n int) BinaryOption {
	return func(b *Binary) {
		if n <= 0 {
			b.bases = nil
			return
		}
		b.bases, _ = lru.New(n)
	}
}

// NewBinary creates a bsdiff codec reading and writing through fsys.
func NewBinary(fsys ports.FileSystem, opts ...BinaryOption) *Binary {
	b := &Binary{fs: fsys, maxFileSize: DefaultMaxFileSize}
	b.bases, _ = lru.New(DefaultBaseCacheSize)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Algorithm returns "bsdiff".
func (b *Binary) Algorithm() string { return AlgorithmBsdiff }

// Produce writes a framed bsdiff delta from oldPath to newPath into diffPath.
func (b *Binary) Produce(ctx context.Context, oldPath, newPath, diffPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	old, err := b.fs.ReadFile(oldPath)
	if errors.Is(err, fs.ErrNotExist) {
		old = nil
	} else if err != nil {
		return backuperr.IO("read", oldPath, err)
	}
	if err := b.checkSize(oldPath, len(old)); err != nil {
		return err
	}

	new, err := b.fs.ReadFile(newPath)
	if err != nil {
		return backuperr.IO("read", newPath, err)
	}
	if err := b.checkSize(newPath, len(new)); err != nil {
		return err
	}

	out, err := diff(old, new)
	if err != nil {
		return backuperr.Codec("diff", newPath, err)
	}
	if err := b.fs.WriteFile(diffPath, out, 0644); err != nil {
		return backuperr.IO("write", diffPath, err)
	}

	log.WithFields(log.Fields{
		"old":   oldPath,
		"new":   newPath,
		"delta": diffPath,
		"size":  len(out),
	}).Debug("produced bsdiff delta")
	return nil
}

// Apply reconstructs outPath from basePath and the delta at diffPath.
// outPath is only written once the delta has been applied and verified.
func (b *Binary) Apply(ctx context.Context, basePath, diffPath, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	base, err := b.readBase(basePath)
	if err != nil {
		return err
	}
	d, err := b.fs.ReadFile(diffPath)
	if err != nil {
		return backuperr.IO("read", diffPath, err)
	}

	out, err := patch(base, d)
	if err != nil {
		return backuperr.Codec("apply", diffPath, err)
	}
	if err := b.fs.WriteFile(outPath, out, 0644); err != nil {
		return backuperr.IO("write", outPath, err)
	}
	return nil
}

type baseKey struct {
	path  string
	size  int64
	mtime int64
}

func (b *Binary) readBase(path string) ([]byte, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return nil, backuperr.IO("stat", path, err)
	}
	if info.IsDir() {
		return nil, backuperr.IO("read", path, fmt.Errorf("is a directory"))
	}
	if err := b.checkSize(path, int(info.Size())); err != nil {
		return nil, err
	}

	key := baseKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if b.bases != nil {
		if v, ok := b.bases.Get(key); ok {
			return v.([]byte), nil
		}
	}

	data, err := b.fs.ReadFile(path)
	if err != nil {
		return nil, backuperr.IO("read", path, err)
	}
	if b.bases != nil {
		b.bases.Add(key, data)
	}
	return data, nil
}

func (b *Binary) checkSize(path string, n int) error {
	if b.maxFileSize > 0 && int64(n) > b.maxFileSize {
		return backuperr.Codec("size check", path,
			fmt.Errorf("%w (%d > %d bytes)", backuperr.ErrTooLarge, n, b.maxFileSize))
	}
	return nil
}
