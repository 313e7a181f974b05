// Package history lists the backups kept for a working file and the notes
// attached to them.
package history

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/generation"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// Entry kinds.
const (
	KindDelta   = "delta"
	KindCopy    = "copy"
	KindArchive = "archive"
)

// Entry is one restorable backup artifact.
type Entry struct {
	Path string
	Kind string
	// Generation is the generation index of a delta, 0 for full backups.
	Generation int
	Size       int64
	Timestamp  time.Time
	// Algorithm is the delta algorithm, "" for full backups.
	Algorithm string
	Note      string
}

// Name returns the artifact's file name.
func (e Entry) Name() string {
	return filepath.Base(e.Path)
}

// HumanSize returns the size formatted for display.
func (e Entry) HumanSize() string {
	return humanize.IBytes(uint64(e.Size))
}

// Scan lists every backup of workFile under root, oldest first: deltas in
// every generation, then full copies and archives in root itself.
func Scan(fsys ports.FileSystem, root, workFile string) ([]Entry, error) {
	store := generation.NewStore(fsys)
	gens, err := store.List(root)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, gen := range gens {
		paths, err := store.Deltas(gen, workFile)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			e, err := describe(fsys, p)
			if err != nil {
				return nil, err
			}
			e.Kind = KindDelta
			e.Generation = gen.Index
			e.Algorithm = delta.AlgorithmOf(e.Name())
			if ts, ok := DeltaTime(e.Name()); ok {
				e.Timestamp = ts
			}
			entries = append(entries, e)
		}
	}

	full, err := scanFull(fsys, root, workFile)
	if err != nil {
		return nil, err
	}
	entries = append(entries, full...)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func scanFull(fsys ports.FileSystem, root, workFile string) ([]Entry, error) {
	dirEntries, err := fsys.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, backuperr.IO("list", root, err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		ts, kind, ok := ParseFullName(workFile, de.Name())
		if !ok {
			continue
		}
		e, err := describe(fsys, filepath.Join(root, de.Name()))
		if err != nil {
			return nil, err
		}
		e.Kind = kind
		e.Timestamp = ts
		entries = append(entries, e)
	}
	return entries, nil
}

func describe(fsys ports.FileSystem, path string) (Entry, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return Entry{}, backuperr.IO("stat", path, err)
	}
	note, err := ReadNote(fsys, path)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Path: path, Size: info.Size(), Timestamp: info.ModTime(), Note: note}, nil
}

// FullName returns the file name of a full backup of workFile taken at ts:
// <stem>_<YYYYMMDD_HHMMSS><ext>, or <stem>_<YYYYMMDD_HHMMSS>.zip when
// archived.
func FullName(workFile string, ts time.Time, archived bool) string {
	stem, ext := splitExt(filepath.Base(workFile))
	if archived {
		ext = ".zip"
	}
	return stem + "_" + ts.Format(delta.TimestampLayout) + ext
}

// ParseFullName reports whether name is a full backup of workFile, and if
// so when it was taken and whether it is a copy or an archive.
func ParseFullName(workFile, name string) (time.Time, string, bool) {
	stem, ext := splitExt(filepath.Base(workFile))
	rest := strings.TrimPrefix(name, stem+"_")
	if rest == name || len(rest) < len(delta.TimestampLayout) {
		return time.Time{}, "", false
	}
	ts, err := time.ParseInLocation(delta.TimestampLayout, rest[:len(delta.TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, "", false
	}
	switch suffix := rest[len(delta.TimestampLayout):]; {
	case suffix == ext:
		return ts, KindCopy, true
	case strings.EqualFold(suffix, ".zip"):
		return ts, KindArchive, true
	default:
		return time.Time{}, "", false
	}
}

// DeltaTime returns the timestamp encoded in a delta name of either scheme.
func DeltaTime(name string) (time.Time, bool) {
	if info, ok := delta.ParseArtifactName(name); ok {
		return info.Timestamp, true
	}
	i := strings.Index(name, delta.LegacyMarker)
	if i < 0 {
		return time.Time{}, false
	}
	stamp := name[i+1:]
	for _, layout := range []string{delta.TimestampLayout, "20060102150405", "20060102"} {
		if len(stamp) < len(layout) {
			continue
		}
		if ts, err := time.ParseInLocation(layout, stamp[:len(layout)], time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func splitExt(name string) (stem, ext string) {
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}
