// Package generation manages the backup root: numbered generation
// directories, each holding one base snapshot of the working file and the
// deltas computed against it.
package generation

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/ports"
	log "github.com/sirupsen/logrus"
)

// BaseExt is the extension of base snapshots.
const BaseExt = ".base"

// NoteExt is the extension of note files kept next to artifacts.
const NoteExt = ".note"

var dirPattern = regexp.MustCompile(`^base(\d+)_(.*)$`)

// Generation is one base snapshot directory.
type Generation struct {
	Index     int
	Timestamp time.Time
	Dir       string
}

// Name returns the directory name, base<Index>_<timestamp>.
func (g Generation) Name() string {
	return filepath.Base(g.Dir)
}

// BasePath returns the path of the base snapshot of workFile in g.
func (g Generation) BasePath(workFile string) string {
	return filepath.Join(g.Dir, filepath.Base(workFile)+BaseExt)
}

// DirName returns the directory name of generation index created at ts.
func DirName(index int, ts time.Time) string {
	return fmt.Sprintf("base%d_%s", index, ts.Format(delta.TimestampLayout))
}

// ParseDirName decodes a generation directory name. Names without an
// integer index of at least 1 report false. An unparsable timestamp leaves
// it zero.
func ParseDirName(name string) (index int, ts time.Time, ok bool) {
	m := dirPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, time.Time{}, false
	}
	index, err := strconv.Atoi(m[1])
	if err != nil || index < 1 {
		return 0, time.Time{}, false
	}
	ts, _ = time.ParseInLocation(delta.TimestampLayout, m[2], time.Local)
	return index, ts, true
}

// BaseName returns the base snapshot file name for workFile.
func BaseName(workFile string) (string, error) {
	if workFile == "" || strings.HasSuffix(workFile, string(filepath.Separator)) {
		return "", &backuperr.InvalidNameError{Path: workFile}
	}
	switch name := filepath.Base(workFile); name {
	case ".", "..":
		return "", &backuperr.InvalidNameError{Path: workFile}
	default:
		return name + BaseExt, nil
	}
}

// Store locates and creates generations under a backup root.
type Store struct {
	fs    ports.FileSystem
	clock ports.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to timestamp new generations.
func WithClock(c ports.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// NewStore creates a generation store.
func NewStore(fsys ports.FileSystem, opts ...Option) *Store {
	s := &Store{fs: fsys, clock: ports.SystemClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every generation under root, by index ascending.
// A missing root has no generations.
func (s *Store) List(root string) ([]Generation, error) {
	if _, err := s.fs.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	entries, err := s.fs.ReadDir(root)
	if err != nil {
		return nil, backuperr.IO("list", root, err)
	}

	var gens []Generation
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		idx, ts, ok := ParseDirName(e.Name())
		if !ok {
			continue
		}
		gens = append(gens, Generation{Index: idx, Timestamp: ts, Dir: filepath.Join(root, e.Name())})
	}
	sort.SliceStable(gens, func(i, j int) bool {
		return gens[i].Index < gens[j].Index
	})
	return gens, nil
}

// FindLatest returns the generation with the largest index, or nil when
// root is missing or holds none.
func (s *Store) FindLatest(root string) (*Generation, error) {
	gens, err := s.List(root)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, nil
	}
	latest := gens[len(gens)-1]
	return &latest, nil
}

// ResolveOrCreate returns the latest generation, creating generation 1 from
// workFile when there is none.
func (s *Store) ResolveOrCreate(root, workFile string) (Generation, int, error) {
	latest, err := s.FindLatest(root)
	if err != nil {
		return Generation{}, 0, err
	}
	if latest != nil {
		return *latest, latest.Index, nil
	}
	gen, err := s.Create(root, 1, workFile)
	if err != nil {
		return Generation{}, 0, err
	}
	return gen, 1, nil
}

// Create makes generation index under root and snapshots workFile into it.
// An existing directory of the same name is an error.
func (s *Store) Create(root string, index int, workFile string) (Generation, error) {
	baseName, err := BaseName(workFile)
	if err != nil {
		return Generation{}, err
	}

	ts := s.clock.Now()
	dir := filepath.Join(root, DirName(index, ts))

	if err := s.fs.MkdirAll(root, 0755); err != nil {
		return Generation{}, backuperr.IO("create", root, err)
	}
	if err := s.fs.Mkdir(dir, 0755); err != nil {
		return Generation{}, backuperr.IO("create", dir, err)
	}

	basePath := filepath.Join(dir, baseName)
	if err := s.fs.CopyFile(workFile, basePath); err != nil {
		_ = s.fs.Remove(basePath)
		_ = s.fs.Remove(dir)
		return Generation{}, backuperr.IO("copy", workFile, err)
	}

	log.WithFields(log.Fields{
		"generation": index,
		"dir":        dir,
		"work":       workFile,
	}).Info("created base generation")

	return Generation{Index: index, Timestamp: ts.Truncate(time.Second), Dir: dir}, nil
}

// Deltas returns the paths of workFile's delta artifacts in gen, oldest
// first. Both the current and the legacy naming scheme are included.
func (s *Store) Deltas(gen Generation, workFile string) ([]string, error) {
	entries, err := s.fs.ReadDir(gen.Dir)
	if err != nil {
		return nil, backuperr.IO("list", gen.Dir, err)
	}

	original := filepath.Base(workFile)
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !IsDelta(name) || delta.OriginalOf(name) != original {
			continue
		}
		paths = append(paths, filepath.Join(gen.Dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// LatestDelta returns the newest delta of workFile in gen, or "" if none.
func (s *Store) LatestDelta(gen Generation, workFile string) (string, error) {
	paths, err := s.Deltas(gen, workFile)
	if err != nil || len(paths) == 0 {
		return "", err
	}
	return paths[len(paths)-1], nil
}

// IsDelta reports whether name looks like a delta artifact rather than a
// base snapshot, note or temporary file.
func IsDelta(name string) bool {
	if _, ok := delta.ParseArtifactName(name); ok {
		return true
	}
	for _, ext := range []string{BaseExt, NoteExt, ".empty", delta.DiffExt} {
		if strings.HasSuffix(name, ext) {
			return false
		}
	}
	return strings.Contains(name, delta.LegacyMarker)
}
