package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/mcdonaldj/genbak/internal/backuperr"
	"github.com/mcdonaldj/genbak/internal/config"
	"github.com/mcdonaldj/genbak/internal/delta"
	"github.com/mcdonaldj/genbak/internal/mocks"
	"github.com/mcdonaldj/genbak/internal/ports"
	"github.com/stretchr/testify/require"
)

const (
	work    = "/docs/report.docx"
	genDir  = "/docs/backup/base1_20240115_090000"
	basePth = genDir + "/report.docx.base"
)

var versions = [][]byte{
	[]byte("chapter one\n"),
	[]byte("chapter one\nchapter two\n"),
	[]byte("chapter one, revised\nchapter two\n"),
	[]byte("chapter one, revised\nchapter two\nchapter three\n"),
}

// buildChain writes a base and one delta per later version, returning the
// delta paths oldest first.
func buildChain(t *testing.T, fsys *mocks.MockFileSystem) []string {
	t.Helper()
	fsys.AddFile(basePth, versions[0])

	codec := delta.NewBinary(fsys)
	stamps := []string{"20240115_100000", "20240115_110000", "20240115_120000"}
	var paths []string
	for i, v := range versions[1:] {
		fsys.AddFile(work, v)
		p := genDir + "/report.docx." + stamps[i] + ".bsdiff.diff"
		require.NoError(t, codec.Produce(context.Background(), basePth, work, p))
		paths = append(paths, p)
	}
	return paths
}

func newService(fsys *mocks.MockFileSystem, runner *mocks.MockToolRunner, opts ...Option) *Service {
	codecs := delta.New(config.DefaultConfig(), fsys, runner)
	return NewService(fsys, codecs, mocks.NewMockArchiver(), opts...)
}

func TestAutoOutputPath(t *testing.T) {
	tests := []struct {
		work, want string
	}{
		{"/docs/report.docx", "/docs/report_restored.docx"},
		{"/docs/report.2024.docx", "/docs/report.2024_restored.docx"},
		{"/docs/Makefile", "/docs/Makefile_restored"},
		{"notes.txt", "notes_restored.txt"},
	}
	for _, tt := range tests {
		if got := AutoOutputPath(tt.work); got != tt.want {
			t.Errorf("AutoOutputPath(%q) = %q, expected %q", tt.work, got, tt.want)
		}
	}
}

func TestRestoreChain(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	deltas := buildChain(t, fsys)
	svc := newService(fsys, mocks.NewMockToolRunner())

	res, err := svc.Restore(context.Background(), work, deltas)
	require.NoError(t, err)
	require.Equal(t, Result{Output: "/docs/report_restored.docx", Applied: 3}, res)
	require.Equal(t, versions[3], fsys.Content(res.Output))

	// Each delta is against the base, so any single step reconstructs its version.
	res, err = svc.Restore(context.Background(), work, deltas[:1])
	require.NoError(t, err)
	require.Equal(t, versions[1], fsys.Content(res.Output))
}

func TestRestoreIsRepeatable(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	deltas := buildChain(t, fsys)
	svc := newService(fsys, mocks.NewMockToolRunner())

	first, err := svc.Restore(context.Background(), work, deltas)
	require.NoError(t, err)
	firstBytes := fsys.Content(first.Output)

	second, err := newService(fsys, mocks.NewMockToolRunner()).Restore(context.Background(), work, deltas)
	require.NoError(t, err)
	require.Equal(t, firstBytes, fsys.Content(second.Output))
}

func TestRestoreStopsAtFirstFailure(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	deltas := buildChain(t, fsys)
	orphan := "/elsewhere/other.txt.20240115_100000.bsdiff.diff"
	fsys.AddFile(orphan, []byte("orphan"))

	svc := newService(fsys, mocks.NewMockToolRunner())
	res, err := svc.Restore(context.Background(), work, []string{deltas[0], orphan, deltas[2]})

	var missing *backuperr.MissingBaseError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "other.txt.base", missing.GuessedName)
	require.Equal(t, 1, res.Applied)
	require.Equal(t, versions[1], fsys.Content(res.Output))
}

func TestRestoreWrongBaseIsCodecError(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	deltas := buildChain(t, fsys)
	fsys.AddFile(basePth, []byte("a different base entirely"))

	res, err := newService(fsys, mocks.NewMockToolRunner()).Restore(context.Background(), work, deltas)
	require.True(t, errors.Is(err, backuperr.ErrWrongBase))
	require.Equal(t, "codec", backuperr.Kind(err))
	require.Equal(t, Result{}, res)
	require.False(t, fsys.Exists("/docs/report_restored.docx"))
}

func TestRestoreChecksContextBetweenSteps(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	deltas := buildChain(t, fsys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newService(fsys, mocks.NewMockToolRunner()).Restore(ctx, work, deltas)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, res.Applied)
}

func TestRestoreEmptyChain(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	res, err := newService(fsys, mocks.NewMockToolRunner()).Restore(context.Background(), work, nil)
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}

func TestRestoreRoutesByAlgorithm(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile(basePth, versions[0])
	hd := genDir + "/report.docx.20240115_100000.hdiff.diff"
	fsys.AddFile(hd, []byte("hdiff payload"))
	runner := mocks.NewMockToolRunner()

	res, err := newService(fsys, runner, WithOutputPath("/tmp/out.docx")).Restore(context.Background(), work, []string{hd})
	require.NoError(t, err)
	require.Equal(t, "/tmp/out.docx", res.Output)
	require.Len(t, runner.Calls, 1)
	require.Equal(t, "hpatchz -f -s "+basePth+" "+hd+" /tmp/out.docx", runner.Calls[0].String())
}

func TestRestoreToolFailure(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile(basePth, versions[0])
	hd := genDir + "/report.docx.20240115_100000.hdiff.diff"
	fsys.AddFile(hd, []byte("hdiff payload"))
	runner := mocks.NewMockToolRunner()
	runner.Results["hpatchz"] = ports.ToolResult{ExitCode: 1, Stderr: []byte("oldFile size error")}

	_, err := newService(fsys, runner).Restore(context.Background(), work, []string{hd})
	require.Equal(t, "tool", backuperr.Kind(err))
	require.Contains(t, err.Error(), "oldFile size error")
}

func TestRestoreFullCopy(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.AddFile("/docs/backup/report_20240115_090000.docx", []byte("full copy"))

	out, err := newService(fsys, mocks.NewMockToolRunner()).RestoreFull(work, "/docs/backup/report_20240115_090000.docx")
	require.NoError(t, err)
	require.Equal(t, "/docs/report_restored.docx", out)
	require.Equal(t, []byte("full copy"), fsys.Content(out))
}

func TestRestoreFullArchive(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	archiver := mocks.NewMockArchiver()
	zipPath := "/docs/backup/report_20240115_090000.zip"
	archiver.ListResults[zipPath] = map[string]ports.FileInfo{"report.docx": {Size: 6}}
	archiver.ReadResults[zipPath+":report.docx"] = []byte("zipped")

	svc := NewService(fsys, delta.NewRegistry(), archiver)
	out, err := svc.RestoreFull(work, zipPath)
	require.NoError(t, err)
	require.Equal(t, []byte("zipped"), fsys.Content(out))

	// A single-entry archive of a since-renamed file still restores.
	out, err = svc.RestoreFull("/docs/renamed.docx", zipPath)
	require.NoError(t, err)
	require.Equal(t, "/docs/renamed_restored.docx", out)
}

func TestRestoreFullArchiveWithoutEntry(t *testing.T) {
	archiver := mocks.NewMockArchiver()
	zipPath := "/docs/backup/x.zip"
	archiver.ListResults[zipPath] = map[string]ports.FileInfo{"a": {}, "b": {}}

	_, err := NewService(mocks.NewMockFileSystem(), delta.NewRegistry(), archiver).RestoreFull(work, zipPath)
	require.Equal(t, "io", backuperr.Kind(err))
}

func TestRestoreRejectsWorkFileWithoutName(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	deltas := buildChain(t, fsys)
	fsys.Calls = nil
	svc := newService(fsys, mocks.NewMockToolRunner())

	for _, bad := range []string{"/docs/", "", "/docs/.."} {
		res, err := svc.Restore(context.Background(), bad, deltas[:1])
		var nameErr *backuperr.InvalidNameError
		require.True(t, errors.As(err, &nameErr), "%q: %v", bad, err)
		require.Equal(t, "invalid-name", backuperr.Kind(err))
		require.Equal(t, Result{}, res)

		_, err = svc.RestoreFull(bad, "/docs/backup/report_20240115_090000.docx")
		require.True(t, errors.As(err, &nameErr), "%q: %v", bad, err)
	}
	require.Empty(t, fsys.Calls)
}
