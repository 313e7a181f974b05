package history

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// NotePath returns the note file kept next to artifact.
func NotePath(artifact string) string {
	return artifact + generation.NoteExt
}

// ReadNote returns the note attached to artifact, or "" if it has none.
func ReadNote(fsys ports.FileSystem, artifact string) (string, error) {
	data, err := fsys.ReadFile(NotePath(artifact))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", backuperr.IO("read", NotePath(artifact), err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// WriteNote attaches text to artifact. Blank text removes the note.
func WriteNote(fsys ports.FileSystem, artifact, text string) error {
	path := NotePath(artifact)
	if _, err := fsys.Stat(artifact); err != nil {
		return backuperr.IO("stat", artifact, err)
	}

	if strings.TrimSpace(text) == "" {
		if err := fsys.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return backuperr.IO("remove", path, err)
		}
		return nil
	}
	if err := fsys.WriteFile(path, []byte(text+"\n"), 0644); err != nil {
		return backuperr.IO("write", path, err)
	}
	return nil
}
