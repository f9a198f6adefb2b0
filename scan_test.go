package identifile_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gobeaver/identifile"
	"github.com/gobeaver/identifile/driver/local"
	"github.com/gobeaver/identifile/driver/memory"
	"github.com/gobeaver/identifile/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSniffer(t *testing.T) *identifile.Sniffer {
	t.Helper()
	s, err := identifile.New(&identifile.Config{ScanWorkers: 3})
	require.NoError(t, err)
	return s
}

func fixtures() map[string][]byte {
	return map[string][]byte{
		"logs/app.log.gz":         append([]byte{0x1F, 0x8B, 0x08}, make([]byte, 40)...),
		"logs/app.log.zst":        append([]byte{0x28, 0xB5, 0x2F, 0xFD}, make([]byte, 40)...),
		"tables/part-0.parquet":   append(append([]byte("PAR1"), make([]byte, 100)...), "PAR1"...),
		"tables/part-0.orc":       append(make([]byte, 600), "ORC"...),
		"raw/blob.snappy":         make([]byte, 20),
		"raw/notes.txt":           []byte("plain text"),
		"archives/bundle.tar":     append(append(make([]byte, 257), "ustar\x0000"...), make([]byte, 300)...),
		"archives/nested/a.7z":    append([]byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, make([]byte, 10)...),
		"archives/nested/b.bz2":   append([]byte("BZh9"), make([]byte, 10)...),
		"archives/nested/c.xz":    append([]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, make([]byte, 10)...),
		"archives/nested/d.lz4":   append([]byte{0x04, 0x22, 0x4D, 0x18}, make([]byte, 10)...),
		"archives/nested/empty.z": {},
	}
}

func memoryFS(t *testing.T, cfg ...memory.Config) *memory.Adapter {
	t.Helper()
	fs := memory.New(cfg...)
	for p, data := range fixtures() {
		require.NoError(t, fs.Write(context.Background(), p, bytes.NewReader(data)))
	}
	return fs
}

func localFS(t *testing.T) *local.Adapter {
	t.Helper()
	root := t.TempDir()
	for p, data := range fixtures() {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, data, 0o644))
	}
	fs, err := local.New(root)
	require.NoError(t, err)
	return fs
}

var wantFormats = map[string]string{
	"archives/bundle.tar":     sniff.FormatTar,
	"archives/nested/a.7z":    sniff.Format7z,
	"archives/nested/b.bz2":   sniff.FormatBzip2,
	"archives/nested/c.xz":    sniff.FormatXZ,
	"archives/nested/d.lz4":   sniff.FormatLZ4Frame,
	"archives/nested/empty.z": sniff.FormatUnknown,
	"logs/app.log.gz":         sniff.FormatGzip,
	"logs/app.log.zst":        sniff.FormatZstd,
	"raw/blob.snappy":         sniff.FormatSnappyRaw,
	"raw/notes.txt":           sniff.FormatUnknown,
	"tables/part-0.orc":       sniff.FormatORC,
	"tables/part-0.parquet":   sniff.FormatParquet,
}

func TestScan(t *testing.T) {
	backends := map[string]identifile.FileReader{
		"memory": memoryFS(t),
		"local":  localFS(t),
	}

	for name, fs := range backends {
		t.Run(name, func(t *testing.T) {
			results, err := newSniffer(t).Scan(context.Background(), fs, "", "")
			require.NoError(t, err)
			require.Len(t, results, len(wantFormats))

			for i, r := range results {
				if i > 0 {
					assert.Less(t, results[i-1].Path, r.Path, "results are sorted by path")
				}
				require.NoError(t, r.Err, r.Path)
				assert.Equal(t, wantFormats[r.Path], r.Detection.Format, r.Path)
				assert.Equal(t, int64(len(fixtures()[r.Path])), r.Size, r.Path)
			}
		})
	}
}

func TestScanPattern(t *testing.T) {
	s := newSniffer(t)
	fs := memoryFS(t)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.gz", []string{"logs/app.log.gz"}},
		{"tables/*", []string{"tables/part-0.orc", "tables/part-0.parquet"}},
		{"archives/**", []string{
			"archives/bundle.tar",
			"archives/nested/a.7z",
			"archives/nested/b.bz2",
			"archives/nested/c.xz",
			"archives/nested/d.lz4",
			"archives/nested/empty.z",
		}},
		{"*.{orc,parquet}", []string{"tables/part-0.orc", "tables/part-0.parquet"}},
		{"*.none", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			results, err := s.Scan(context.Background(), fs, "", tt.pattern)
			require.NoError(t, err)

			var got []string
			for _, r := range results {
				got = append(got, r.Path)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanSubdirectory(t *testing.T) {
	results, err := newSniffer(t).Scan(context.Background(), localFS(t), "tables", "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "tables/part-0.orc", results[0].Path)
	assert.Equal(t, sniff.FormatORC, results[0].Detection.Format)
}

func TestScanInvalidPattern(t *testing.T) {
	_, err := newSniffer(t).Scan(context.Background(), memoryFS(t), "", "[unclosed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, identifile.ErrInvalidPattern))
}

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.gz", "a.gz", true},
		{"*.gz", "deep/dir/a.gz", true},
		{"*.gz", "a.zst", false},
		{"nested/**", "nested/deep/c", true},
		{"nested/**", "other/readme.d", false},
		{"*.{orc,parquet}", "t/part.orc", true},
		{"", "anything", true},
	}
	for _, tt := range tests {
		match, err := identifile.CompilePattern(tt.pattern)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, match(tt.path), "%s ~ %s", tt.pattern, tt.path)
	}

	_, err := identifile.CompilePattern("[")
	assert.ErrorIs(t, err, identifile.ErrInvalidPattern)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := newSniffer(t).Scan(context.Background(), localFS(t), "nowhere", "")
	require.Error(t, err)
	assert.True(t, identifile.IsNotExist(err))
}

func TestScanSequentialBackend(t *testing.T) {
	fs := memoryFS(t, memory.Config{Sequential: true})

	results, err := newSniffer(t).Scan(context.Background(), fs, "", "*.{gz,orc,parquet}")
	require.NoError(t, err)
	require.Len(t, results, 3)

	byPath := make(map[string]sniff.Detection)
	for _, r := range results {
		byPath[r.Path] = r.Detection
	}

	gz := byPath["logs/app.log.gz"]
	assert.Equal(t, sniff.FormatGzip, gz.Format)
	assert.Equal(t, sniff.ConfidencePartial, gz.Confidence)
	assert.True(t, gz.IsPartial())

	assert.Equal(t, sniff.FormatUnknown, byPath["tables/part-0.orc"].Format)
	assert.Equal(t, sniff.FormatUnknown, byPath["tables/part-0.parquet"].Format)
}

// flakyFS fails reads of one path
type flakyFS struct {
	identifile.FileReader
	broken string
}

func (f *flakyFS) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if p == f.broken {
		return nil, &identifile.PathError{Op: "read", Path: p, Err: errors.New("disk on fire")}
	}
	return f.FileReader.Read(ctx, p)
}

func TestScanRecordsReadFailures(t *testing.T) {
	fs := &flakyFS{FileReader: memoryFS(t), broken: "logs/app.log.zst"}

	results, err := newSniffer(t).Scan(context.Background(), fs, "logs", "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Equal(t, sniff.FormatGzip, results[0].Detection.Format)

	assert.Equal(t, "logs/app.log.zst", results[1].Path)
	assert.True(t, sniff.IsSourceUnavailable(results[1].Err))
	assert.Contains(t, results[1].Err.Error(), "disk on fire")
	assert.Equal(t, sniff.Unknown(), results[1].Detection)

	counts := identifile.Summarize(results)
	assert.Equal(t, map[string]int{sniff.FormatGzip: 1, "": 1}, counts)
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSniffer(t).Scan(ctx, memoryFS(t), "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectFile(t *testing.T) {
	s := newSniffer(t)
	fs := memoryFS(t)
	ctx := context.Background()

	det, err := s.DetectFile(ctx, fs, "raw/blob.snappy")
	require.NoError(t, err)
	assert.Equal(t, sniff.FormatSnappyRaw, det.Format, "hint taken from the path")

	det, err = s.DetectFile(ctx, fs, "raw/blob.snappy", identifile.WithUseExtensionHint(false))
	require.NoError(t, err)
	assert.Equal(t, sniff.FormatUnknown, det.Format)

	_, err = s.DetectFile(ctx, fs, "raw/missing")
	require.Error(t, err)
	assert.True(t, sniff.IsSourceUnavailable(err))
	assert.True(t, identifile.IsNotExist(err))
}
