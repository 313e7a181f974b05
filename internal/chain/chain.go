// Package chain works out which base snapshot a delta artifact must be
// applied against, from the artifact's file name.
package chain

import (
	"path/filepath"
	"strings"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// Naming schemes a delta name can follow.
const (
	SchemeCurrent = "current" // <original>.<YYYYMMDD_HHMMSS>.<algorithm>.diff
	SchemeLegacy  = "legacy"  // <original>.20YYMMDD...
)

// Guess is the base name inferred from a delta file name.
type Guess struct {
	BaseName string
	Scheme   string
	// Ambiguous is set for legacy names containing the marker more than
	// once, where the original name may itself contain ".20".
	Ambiguous bool
}

// GuessBaseName infers the base snapshot name for deltaName.
func GuessBaseName(deltaName string) Guess {
	if original, _, ok := delta.SplitName(deltaName); ok {
		return Guess{
			BaseName: original + generation.BaseExt,
			Scheme:   SchemeCurrent,
		}
	}

	original := deltaName
	if i := strings.Index(deltaName, delta.LegacyMarker); i >= 0 {
		original = deltaName[:i]
	}
	return Guess{
		BaseName:  original + generation.BaseExt,
		Scheme:    SchemeLegacy,
		Ambiguous: strings.Count(deltaName, delta.LegacyMarker) > 1,
	}
}

// Resolution is a located base snapshot.
type Resolution struct {
	BasePath string
	Guess    Guess
	// Fallback is set when the guessed name did not exist and the working
	// file's own base name was used instead.
	Fallback bool
}

// Resolver locates base snapshots on disk.
type Resolver struct {
	fs ports.FileSystem
}

// NewResolver creates a resolver checking existence through fs.
func NewResolver(fs ports.FileSystem) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve finds the base for deltaPath: the guessed name in the delta's
// directory, else <basename(workFile)>.base there. Only existence is
// checked.
func (r *Resolver) Resolve(workFile, deltaPath string) (Resolution, error) {
	dir := filepath.Dir(deltaPath)
	guess := GuessBaseName(filepath.Base(deltaPath))

	if guess.Ambiguous {
		log.WithFields(log.Fields{
			"delta": deltaPath,
			"base":  guess.BaseName,
		}).Warn("legacy delta name contains \".20\" more than once; base guess may be wrong")
	}

	guessed := filepath.Join(dir, guess.BaseName)
	if r.isFile(guessed) {
		return Resolution{BasePath: guessed, Guess: guess}, nil
	}

	fallback := filepath.Join(dir, filepath.Base(workFile)+generation.BaseExt)
	if r.isFile(fallback) {
		log.WithFields(log.Fields{
			"delta":   deltaPath,
			"guessed": guess.BaseName,
			"base":    fallback,
		}).Info("guessed base not found, using working file's base")
		return Resolution{BasePath: fallback, Guess: guess, Fallback: true}, nil
	}

	return Resolution{Guess: guess}, &backuperr.MissingBaseError{GuessedName: guess.BaseName}
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.fs.Stat(path)
	return err == nil && !info.IsDir()
}
