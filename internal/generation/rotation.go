package generation

import (
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// ShouldRotateSizes reports whether a delta of deltaSize against a base of
// baseSize has grown past threshold times the base. An empty base never
// rotates.
func ShouldRotateSizes(baseSize, deltaSize int64, threshold float64) bool {
	if baseSize == 0 {
		return false
	}
	return float64(deltaSize) > float64(baseSize)*threshold
}

// ShouldRotate is ShouldRotateSizes on the sizes of two files. A file that
// cannot be stat'ed counts as size 0.
func ShouldRotate(fs ports.FileSystem, basePath, deltaPath string, threshold float64) bool {
	baseSize := fileSize(fs, basePath)
	deltaSize := fileSize(fs, deltaPath)
	rotate := ShouldRotateSizes(baseSize, deltaSize, threshold)

	log.WithFields(log.Fields{
		"base":      baseSize,
		"delta":     deltaSize,
		"threshold": threshold,
		"rotate":    rotate,
	}).Debug("rotation check")
	return rotate
}

func fileSize(fs ports.FileSystem, path string) int64 {
	if path == "" {
		return 0
	}
	info, err := fs.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}
