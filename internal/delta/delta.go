// Package delta produces and applies binary deltas between file versions.
//
// Two interchangeable codecs share the Codec contract: Binary computes
// bsdiff patches in-process, External delegates to the hdiffz/hpatchz
// tools. A Registry selects a codec by the algorithm token embedded in a
// delta artifact's file name.
package delta

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/ports"
)

// Algorithm tokens written into delta artifact names.
const (
	AlgorithmBsdiff = "bsdiff"
	AlgorithmHdiff  = "hdiff"
)

// TimestampLayout formats timestamps embedded in generation and artifact names.
const TimestampLayout = "20060102_150405"

// DiffExt is the extension of new-scheme delta artifacts.
const DiffExt = ".diff"

// Codec produces and applies deltas between files.
type Codec interface {
	// Algorithm returns the token identifying this codec in artifact names.
	Algorithm() string

	// Produce writes to diffPath a delta that transforms oldPath into newPath.
	// A missing oldPath is treated as an empty baseline.
	Produce(ctx context.Context, oldPath, newPath, diffPath string) error

	// Apply reconstructs into outPath the file described by applying
	// diffPath to basePath.
	Apply(ctx context.Context, basePath, diffPath, outPath string) error
}

// ArtifactName returns the new-scheme name of a delta artifact:
// <original>.<YYYYMMDD_HHMMSS>.<algorithm>.diff
func ArtifactName(original string, ts time.Time, algorithm string) string {
	return fmt.Sprintf("%s.%s.%s%s", original, ts.Format(TimestampLayout), algorithm, DiffExt)
}

// ArtifactInfo is what a new-scheme artifact name encodes.
type ArtifactInfo struct {
	Original  string
	Timestamp time.Time
	Algorithm string
}

// ParseArtifactName decodes a new-scheme artifact name. It reports false for
// legacy names and anything else that does not follow the scheme.
func ParseArtifactName(name string) (ArtifactInfo, bool) {
	if !strings.HasSuffix(name, DiffExt) {
		return ArtifactInfo{}, false
	}
	parts := strings.Split(name, ".")
	n := len(parts)
	if n < 4 {
		return ArtifactInfo{}, false
	}
	original := strings.Join(parts[:n-3], ".")
	if original == "" || parts[n-2] == "" {
		return ArtifactInfo{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, parts[n-3], time.Local)
	if err != nil {
		return ArtifactInfo{}, false
	}
	return ArtifactInfo{Original: original, Timestamp: ts, Algorithm: parts[n-2]}, true
}

// LegacyMarker precedes the timestamp in legacy artifact names,
// <original>.20YYMMDD...
const LegacyMarker = ".20"

// SplitName splits a current-scheme artifact name into its original file
// name and algorithm token by dot segments alone: the name needs at least
// four segments and an algorithm marker. The timestamp is not checked.
func SplitName(name string) (original, algorithm string, ok bool) {
	if !strings.Contains(name, "."+AlgorithmBsdiff+".") && !strings.Contains(name, "."+AlgorithmHdiff+".") {
		return "", "", false
	}
	parts := strings.Split(name, ".")
	n := len(parts)
	if n < 4 {
		return "", "", false
	}
	return strings.Join(parts[:n-3], "."), parts[n-2], true
}

// OriginalOf returns the name of the file an artifact was taken from.
// Legacy names are split at the first LegacyMarker.
func OriginalOf(name string) string {
	if original, _, ok := SplitName(name); ok {
		return original
	}
	if info, ok := ParseArtifactName(name); ok {
		return info.Original
	}
	if i := strings.Index(name, LegacyMarker); i >= 0 {
		return name[:i]
	}
	return name
}

// AlgorithmOf returns the algorithm token of an artifact name. Legacy
// names, which carry no token, report AlgorithmBsdiff.
func AlgorithmOf(name string) string {
	if _, algorithm, ok := SplitName(name); ok {
		return algorithm
	}
	if info, ok := ParseArtifactName(name); ok {
		return info.Algorithm
	}
	return AlgorithmBsdiff
}

// Registry maps algorithm tokens to codecs.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry creates a registry holding codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any codec with the same algorithm token.
func (r *Registry) Register(c Codec) {
	r.codecs[c.Algorithm()] = c
}

// Get returns the codec for algorithm.
func (r *Registry) Get(algorithm string) (Codec, error) {
	c, ok := r.codecs[algorithm]
	if !ok {
		return nil, backuperr.Codec("select", "", fmt.Errorf("%w: %q", backuperr.ErrUnknownAlgorithm, algorithm))
	}
	return c, nil
}

// ForArtifact returns the codec that produced the artifact named name.
// Legacy names carry no algorithm token and were always bsdiff.
func (r *Registry) ForArtifact(name string) (Codec, error) {
	return r.Get(AlgorithmOf(name))
}

// Algorithms returns the registered tokens in sorted order.
func (r *Registry) Algorithms() []string {
	var names []string
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a registry holding both codecs configured from cfg.
func New(cfg *config.Config, fsys ports.FileSystem, runner ports.ToolRunner) *Registry {
	return NewRegistry(
		NewBinary(fsys, WithMaxFileSize(cfg.BsdiffMaxFileSize)),
		NewExternal(runner, fsys,
			WithDiffTool(cfg.Hdiff.DiffTool),
			WithPatchTool(cfg.Hdiff.PatchTool),
			WithCompression(cfg.Hdiff.Compress),
		),
	)
}
