// Package ziparchiver provides an archiver adapter using klauspost/compress/zip.
package ziparchiver

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// MaxDecompressSize is the maximum allowed uncompressed entry size (10GB).
// This prevents decompression bomb attacks (G110).
const MaxDecompressSize = 10 * 1024 * 1024 * 1024 // 10GB

// ZipArchiver implements ports.Archiver using klauspost/compress/zip.
type ZipArchiver struct{}

// New creates a new ZipArchiver adapter.
func New() *ZipArchiver {
	return &ZipArchiver{}
}

// Create creates a zip archive at destPath holding each of files under its
// base name. Returns the number of files archived.
func (a *ZipArchiver) Create(destPath string, files []string) (int, error) {
	zipFile, err := os.Create(destPath)
	if err != nil {
		return 0, err
	}

	w := zip.NewWriter(zipFile)
	fileCount := 0
	var addErr error

	for _, path := range files {
		if addErr = addFile(w, path); addErr != nil {
			break
		}
		fileCount++
	}

	// Close zip writer first to flush data
	if closeErr := w.Close(); closeErr != nil {
		_ = zipFile.Close() // Best effort cleanup on error path
		return 0, fmt.Errorf("closing zip writer: %w", closeErr)
	}

	// Then close the file
	if closeErr := zipFile.Close(); closeErr != nil {
		return 0, fmt.Errorf("closing zip file: %w", closeErr)
	}

	if addErr != nil {
		_ = os.Remove(destPath)
		return 0, addErr
	}
	return fileCount, nil
}

func addFile(w *zip.Writer, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("not a regular file: %s", path)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("creating header for %s: %w", path, err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	writer, err := w.CreateHeader(header)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(writer, file)
	_ = file.Close() // Explicitly ignore close error - data already copied

	if copyErr != nil {
		return fmt.Errorf("archiving %s: %w", path, copyErr)
	}
	return nil
}

// List returns a map of entry names to their info from the archive.
func (a *ZipArchiver) List(zipPath string) (map[string]ports.FileInfo, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	files := make(map[string]ports.FileInfo)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		// Safe conversion: check for overflow before uint64 -> int64
		size := int64(0)
		if f.UncompressedSize64 <= math.MaxInt64 {
			size = int64(f.UncompressedSize64)
		}
		files[f.Name] = ports.FileInfo{
			Size:  size,
			CRC32: f.CRC32,
		}
	}

	return files, nil
}

// ReadFile reads the contents of the named entry inside a zip archive.
func (a *ZipArchiver) ReadFile(zipPath, name string) ([]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		// SECURITY: Limit decompression size to prevent zip bombs (G110)
		declaredSize := f.UncompressedSize64
		if declaredSize > MaxDecompressSize {
			return nil, fmt.Errorf("file too large: %d bytes exceeds limit of %d bytes", declaredSize, MaxDecompressSize)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()

		// Add 1 byte to detect if actual size exceeds declared size
		content, err := io.ReadAll(io.LimitReader(rc, int64(declaredSize)+1))
		if err != nil {
			return nil, err
		}
		if uint64(len(content)) > declaredSize {
			return nil, fmt.Errorf("decompressed size exceeds declared size")
		}
		return content, nil
	}

	return nil, fmt.Errorf("file not found in archive: %s", name)
}

// Compile-time check that ZipArchiver implements ports.Archiver.
var _ ports.Archiver = (*ZipArchiver)(nil)
