package sniff

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

// sequentialReader hides every interface but io.Reader.
type sequentialReader struct {
	r io.Reader
}

func (s *sequentialReader) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func sequential(data []byte) io.Reader {
	return &sequentialReader{r: bytes.NewReader(data)}
}

// declinedSeeker implements io.Seeker but reports no random access.
type declinedSeeker struct {
	*bytes.Reader
	seeks int
}

func (d *declinedSeeker) RandomAccess() bool { return false }

func (d *declinedSeeker) Seek(offset int64, whence int) (int64, error) {
	d.seeks++
	return d.Reader.Seek(offset, whence)
}

// failingReader returns data and then a non-EOF error.
type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestNonSeekableWithoutBuffering(t *testing.T) {
	det := NewDetector(NewDefaultRegistry())

	got := det.DetectStream(sequential(pad([]byte{0x1F, 0x8B}, 100)), WithBufferNonSeekable(false))
	if got.Format != FormatGzip {
		t.Fatalf("Format = %s, want gzip", got.Format)
	}
	if got.Confidence != ConfidencePartial {
		t.Errorf("Confidence = %v, want %v", got.Confidence, ConfidencePartial)
	}
	if !strings.Contains(got.Evidence, "partial detection") {
		t.Errorf("Evidence = %q, want partial detection note", got.Evidence)
	}
	if !strings.HasPrefix(got.Evidence, "Starts with 1f 8b (gzip).") {
		t.Errorf("Evidence = %q, want rule evidence first", got.Evidence)
	}
	if !got.IsPartial() {
		t.Error("IsPartial() = false, want true")
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"orc needs tail", append(make([]byte, 100), "ORC"...), FormatUnknown},
		{"parquet needs tail", append(pad([]byte("PAR1"), 100), "PAR1"...), FormatUnknown},
		{"tar within prefix", append(make([]byte, 257), pad([]byte("ustar\x00"), 100)...), FormatTar},
		{"brotli heuristic", pad([]byte{0x93}, 10), FormatBrotli},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := det.DetectStream(sequential(tt.data)); got.Format != tt.want {
				t.Errorf("Format = %s, want %s", got.Format, tt.want)
			}
		})
	}

	if got := det.DetectStream(sequential(append(make([]byte, 257), "ustar  "...))); got.Confidence != ConfidencePartial {
		t.Errorf("tar from prefix: Confidence = %v, want %v", got.Confidence, ConfidencePartial)
	}
	if got := det.DetectStream(sequential(pad([]byte{0x93}, 10))); got.Confidence != ConfidenceHeuristic {
		t.Errorf("brotli from prefix: Confidence = %v, want %v", got.Confidence, ConfidenceHeuristic)
	}
}

func TestNonSeekableWithBuffering(t *testing.T) {
	det := NewDetector(NewDefaultRegistry())

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"gzip", pad([]byte{0x1F, 0x8B}, 100), FormatGzip},
		{"orc", append(make([]byte, 100), "ORC"...), FormatORC},
		{"parquet", append(pad([]byte("PAR1"), 100), "PAR1"...), FormatParquet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := det.DetectStream(sequential(tt.data), WithBufferNonSeekable(true))
			if got.Format != tt.want {
				t.Errorf("Format = %s, want %s", got.Format, tt.want)
			}
			if got.Confidence != ConfidenceExact {
				t.Errorf("Confidence = %v, want %v", got.Confidence, ConfidenceExact)
			}
			if strings.Contains(got.Evidence, "partial") {
				t.Errorf("Evidence = %q, want no partial note", got.Evidence)
			}
		})
	}
}

func TestSequentialReadIsBounded(t *testing.T) {
	plan := NewDefaultRegistry().Snapshot().Plan()
	r := bytes.NewReader(make([]byte, 10000))

	w := Probe(&sequentialReader{r: r}, plan, false)
	if w.Mode != ReadSequential {
		t.Errorf("Mode = %s, want %s", w.Mode, ReadSequential)
	}
	consumed := int64(10000 - r.Len())
	if consumed != plan.PrefixLen() {
		t.Errorf("consumed %d bytes, want %d", consumed, plan.PrefixLen())
	}
	if w.TailKnown() {
		t.Error("TailKnown() = true for a sequential read")
	}
}

func TestProbePlanCoversBuiltins(t *testing.T) {
	plan := NewDefaultRegistry().Snapshot().Plan()

	if plan.HeadLen != 10 { // snappy framed stream identifier
		t.Errorf("HeadLen = %d, want 10", plan.HeadLen)
	}
	if plan.OffsetStart != 257 || plan.OffsetEnd != 264 {
		t.Errorf("offset region = [%d, %d), want [257, 264)", plan.OffsetStart, plan.OffsetEnd)
	}
	if plan.TailLen != orcTailSpan {
		t.Errorf("TailLen = %d, want %d", plan.TailLen, orcTailSpan)
	}
	if plan.PrefixLen() != 264 {
		t.Errorf("PrefixLen() = %d, want 264", plan.PrefixLen())
	}
}

func TestProbePlanFollowsRegistry(t *testing.T) {
	reg := NewDefaultRegistry()
	_ = reg.Add("long", Rule{Start: [][]byte{bytes.Repeat([]byte{0xEE}, 32)}, Evidence: "long magic"}, false)

	if got := reg.Snapshot().Plan().HeadLen; got != 32 {
		t.Errorf("HeadLen = %d, want 32", got)
	}

	data := pad(bytes.Repeat([]byte{0xEE}, 32), 4)
	if got := NewDetector(reg).DetectStream(sequential(data)); got.Format != "long" {
		t.Errorf("Format = %s, want long", got.Format)
	}

	reg.Remove("long")
	if got := reg.Snapshot().Plan().HeadLen; got != 10 {
		t.Errorf("HeadLen after remove = %d, want 10", got)
	}
}

func TestShortStreams(t *testing.T) {
	det := NewDetector(NewDefaultRegistry())

	tests := []struct {
		name   string
		data   []byte
		format string
	}{
		{"exact gzip magic", []byte{0x1F, 0x8B}, FormatGzip},
		{"exact zstd magic", []byte{0x28, 0xB5, 0x2F, 0xFD}, FormatZstd},
		{"truncated zstd magic", []byte{0x28, 0xB5, 0x2F}, FormatUnknown},
		{"bare parquet marker", []byte("PAR1"), FormatParquet},
		{"bare orc marker", []byte("ORC"), FormatORC},
		{"shorter than tar offset", make([]byte, 200), FormatUnknown},
		{"tar magic cut short", append(make([]byte, 257), "ustar"...), FormatUnknown},
		{"single byte", []byte{0x00}, FormatUnknown},
		{"empty", []byte{}, FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := det.DetectBytes(tt.data); got.Format != tt.format {
				t.Errorf("seekable: Format = %s, want %s", got.Format, tt.format)
			}
			if got := det.DetectStream(sequential(tt.data), WithBufferNonSeekable(true)); got.Format != tt.format {
				t.Errorf("buffered: Format = %s, want %s", got.Format, tt.format)
			}
		})
	}

	if got := det.DetectStream(sequential(nil)); got != Unknown() {
		t.Errorf("empty sequential stream: got %+v", got)
	}
}

func TestSeekablePositionRestored(t *testing.T) {
	data := append([]byte("skip"), pad([]byte{0x1F, 0x8B}, 300)...)
	r := bytes.NewReader(data)
	if _, err := r.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	got := NewDetector(NewDefaultRegistry()).DetectStream(r)
	if got.Format != FormatGzip {
		t.Errorf("Format = %s, want gzip (detection starts at the current position)", got.Format)
	}
	if pos, _ := r.Seek(0, io.SeekCurrent); pos != 4 {
		t.Errorf("position after detection = %d, want 4", pos)
	}
}

func TestRandomAccessDeclined(t *testing.T) {
	src := &declinedSeeker{Reader: bytes.NewReader(append(make([]byte, 100), "ORC"...))}

	got := NewDetector(NewDefaultRegistry()).DetectStream(src)
	if got.Format != FormatUnknown {
		t.Errorf("Format = %s, want unknown", got.Format)
	}
	if src.seeks != 0 {
		t.Errorf("Seek called %d times on a source that declined random access", src.seeks)
	}
}

func TestPipeIsReadSequentially(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Skipf("os.Pipe() unavailable: %v", err)
	}
	defer pr.Close()

	go func() {
		_, _ = pw.Write(pad([]byte{0x28, 0xB5, 0x2F, 0xFD}, 64))
		pw.Close()
	}()

	got := NewDetector(NewDefaultRegistry()).DetectStream(pr)
	if got.Format != FormatZstd {
		t.Errorf("Format = %s, want zstd", got.Format)
	}
	if got.Confidence != ConfidencePartial {
		t.Errorf("Confidence = %v, want %v", got.Confidence, ConfidencePartial)
	}
}

func TestReadErrorDegrades(t *testing.T) {
	boom := errors.New("connection reset")
	src := &failingReader{data: []byte{0x1F, 0x8B}, err: boom}

	w := Probe(src, NewDefaultRegistry().Snapshot().Plan(), false)
	if !errors.Is(w.Err, boom) {
		t.Errorf("Err = %v, want %v", w.Err, boom)
	}

	src = &failingReader{data: []byte{0x1F, 0x8B}, err: boom}
	got := NewDetector(NewDefaultRegistry()).DetectStream(src)
	if got.Format != FormatGzip {
		t.Errorf("Format = %s, want gzip from the bytes read before the failure", got.Format)
	}

	src = &failingReader{err: boom}
	if got := NewDetector(NewDefaultRegistry()).DetectStream(src, WithBufferNonSeekable(true)); got != Unknown() {
		t.Errorf("failed buffered read: got %+v, want unknown", got)
	}
}

func TestSequentialWithoutTailRules(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Add("magic", Rule{Start: [][]byte{[]byte("MG")}, Evidence: "magic"}, false)

	got := NewDetector(reg).DetectStream(sequential([]byte("MG....")))
	if got.Confidence != ConfidenceExact {
		t.Errorf("Confidence = %v, want %v when no rule needs the tail", got.Confidence, ConfidenceExact)
	}
}
