package chain

import (
	"errors"
	"testing"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/mocks"
	"github.com/stretchr/testify/require"
)

func TestGuessBaseName(t *testing.T) {
	tests := []struct {
		delta string
		want  Guess
	}{
		{
			"report.2024.docx.20240115_093000.bsdiff.diff",
			Guess{BaseName: "report.2024.docx.base", Scheme: SchemeCurrent},
		},
		{
			"notes.txt.20240115_093000.hdiff.diff",
			Guess{BaseName: "notes.txt.base", Scheme: SchemeCurrent},
		},
		{
			// Split at the first ".20", not the last.
			"report.2024.docx.20240115",
			Guess{BaseName: "report.base", Scheme: SchemeLegacy, Ambiguous: true},
		},
		{
			"report.docx.20240115",
			Guess{BaseName: "report.docx.base", Scheme: SchemeLegacy},
		},
		{
			"file.2010.txt.20240115_093000",
			Guess{BaseName: "file.base", Scheme: SchemeLegacy, Ambiguous: true},
		},
		{
			// No marker: the whole name is the original.
			"strange",
			Guess{BaseName: "strange.base", Scheme: SchemeLegacy},
		},
		{
			// Timestamp segment is not checked.
			"notes.txt.2024-01-15.hdiff.diff",
			Guess{BaseName: "notes.txt.base", Scheme: SchemeCurrent},
		},
		{
			// Too few dots for the current scheme.
			"a.bsdiff.diff",
			Guess{BaseName: "a.bsdiff.diff.base", Scheme: SchemeLegacy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.delta, func(t *testing.T) {
			require.Equal(t, tt.want, GuessBaseName(tt.delta))
		})
	}
}

func TestResolveGuessedBase(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile("/g/report.2024.docx.base", []byte("base"))
	fsys.AddFile("/g/report.2024.docx.20240115_093000.bsdiff.diff", []byte("delta"))

	res, err := NewResolver(fsys).Resolve("/w/report.2024.docx", "/g/report.2024.docx.20240115_093000.bsdiff.diff")
	require.NoError(t, err)
	require.Equal(t, "/g/report.2024.docx.base", res.BasePath)
	require.False(t, res.Fallback)
	require.Equal(t, SchemeCurrent, res.Guess.Scheme)
}

func TestResolveLegacyAmbiguousUsesFirstMarker(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile("/g/report.base", []byte("base"))
	fsys.AddFile("/g/report.2024.docx.base", []byte("other base"))

	res, err := NewResolver(fsys).Resolve("/w/report.2024.docx", "/g/report.2024.docx.20240115")
	require.NoError(t, err)
	require.Equal(t, "/g/report.base", res.BasePath)
	require.True(t, res.Guess.Ambiguous)
}

func TestResolveFallsBackToWorkFileBase(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile("/g/renamed.txt.base", []byte("base"))

	res, err := NewResolver(fsys).Resolve("/w/renamed.txt", "/g/original.txt.20240115_093000.bsdiff.diff")
	require.NoError(t, err)
	require.Equal(t, "/g/renamed.txt.base", res.BasePath)
	require.True(t, res.Fallback)
	require.Equal(t, "original.txt.base", res.Guess.BaseName)
}

func TestResolveMissingBase(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddDir("/g/original.txt.base") // a directory is not a base

	_, err := NewResolver(fsys).Resolve("/w/other.txt", "/g/original.txt.20240115_093000.bsdiff.diff")

	var missing *backuperr.MissingBaseError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "original.txt.base", missing.GuessedName)
	require.Contains(t, err.Error(), "original.txt.base")
}

func TestResolveReadsNoBytes(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile("/g/a.txt.base", []byte("base"))

	_, err := NewResolver(fsys).Resolve("/w/a.txt", "/g/a.txt.20240115_093000.bsdiff.diff")
	require.NoError(t, err)
	for _, call := range fsys.Calls {
		require.NotContains(t, call, "ReadFile")
	}
}
