package sniff

import (
	"bytes"
	"errors"
	"io"
)

// RandomAccess lets a source state whether it supports random access.
// Sources implementing io.Seeker are read with random access unless they
// also implement RandomAccess and report false.
type RandomAccess interface {
	RandomAccess() bool
}

// ReadMode describes how a probe obtained its windows.
type ReadMode string

const (
	// ReadRandomAccess read head, offset and tail windows independently.
	ReadRandomAccess ReadMode = "random-access"
	// ReadBuffered consumed a sequential source fully into memory.
	ReadBuffered ReadMode = "buffered"
	// ReadSequential read only a forward prefix of a sequential source.
	ReadSequential ReadMode = "sequential"
)

// Windows holds the byte windows a match is evaluated against.
type Windows struct {
	// Head is the stream's first bytes, up to the plan's HeadLen.
	Head []byte

	// Region covers start-anchored offset conditions and begins at RegionStart.
	Region      []byte
	RegionStart int64

	// Tail is the stream's last bytes, up to the plan's TailLen.
	Tail []byte

	// Size is the stream length from the probe position, or -1 when unknown.
	Size int64

	// Partial is set when tail-dependent conditions could not be evaluated.
	Partial bool

	// Mode records how the windows were read.
	Mode ReadMode

	// Err is the first read error other than EOF, if any. Windows are
	// still usable; they hold whatever was read before the failure.
	Err error
}

// TailKnown reports whether tail-anchored conditions can be evaluated
func (w Windows) TailKnown() bool {
	return w.Size >= 0
}

// Probe reads the windows plan requires from src.
//
// Random-access sources are read relative to their current position, which
// is restored before Probe returns. Sequential sources are read forward for
// PrefixLen bytes only, unless buffer is true, in which case the whole
// stream is read into memory first. Buffering is bounded only by the
// stream's length; callers must bound untrusted sources themselves.
func Probe(src io.Reader, plan ProbePlan, buffer bool) Windows {
	if rs, ok := randomAccess(src); ok {
		if w, ok := probeRandomAccess(rs, plan); ok {
			return w
		}
	}

	if buffer {
		data, err := io.ReadAll(src)
		w, _ := probeRandomAccess(bytes.NewReader(data), plan)
		w.Mode = ReadBuffered
		w.Err = err
		return w
	}

	return probeSequential(src, plan)
}

func randomAccess(src io.Reader) (io.ReadSeeker, bool) {
	rs, ok := src.(io.ReadSeeker)
	if !ok {
		return nil, false
	}
	if ra, ok := src.(RandomAccess); ok && !ra.RandomAccess() {
		return nil, false
	}
	return rs, true
}

// probeRandomAccess returns false, without consuming anything, when the
// source's position cannot be queried (an *os.File backed by a pipe).
func probeRandomAccess(rs io.ReadSeeker, plan ProbePlan) (Windows, bool) {
	base, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return Windows{}, false
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		_, _ = rs.Seek(base, io.SeekStart)
		return Windows{}, false
	}
	defer func() { _, _ = rs.Seek(base, io.SeekStart) }()

	size := end - base
	if size < 0 {
		size = 0
	}

	w := Windows{Size: size, Mode: ReadRandomAccess}
	read := func(off, n int64) []byte {
		buf, err := readAt(rs, base+off, n)
		if err != nil && w.Err == nil {
			w.Err = err
		}
		return buf
	}

	if n := min64(int64(plan.HeadLen), size); n > 0 {
		w.Head = read(0, n)
	}
	if plan.OffsetEnd > plan.OffsetStart && plan.OffsetStart < size {
		w.RegionStart = plan.OffsetStart
		w.Region = read(plan.OffsetStart, min64(plan.OffsetEnd, size)-plan.OffsetStart)
	}
	if n := min64(plan.TailLen, size); n > 0 {
		w.Tail = read(size-n, n)
	}

	return w, true
}

// readAt reads up to n bytes at absolute offset off. A short read at the
// end of the stream is not an error.
func readAt(rs io.ReadSeeker, off, n int64) ([]byte, error) {
	buf := make([]byte, n)

	if ra, ok := rs.(io.ReaderAt); ok {
		read, err := ra.ReadAt(buf, off)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		return buf[:read], err
	}

	if _, err := rs.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	read, err := io.ReadFull(rs, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return buf[:read], err
}

func probeSequential(src io.Reader, plan ProbePlan) Windows {
	w := Windows{
		Size:    -1,
		Partial: plan.NeedsTail(),
		Mode:    ReadSequential,
	}

	prefix := make([]byte, plan.PrefixLen())
	n, err := io.ReadFull(src, prefix)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		w.Err = err
	}
	prefix = prefix[:n]

	w.Head = prefix[:min64(int64(plan.HeadLen), int64(n))]
	if plan.OffsetEnd > plan.OffsetStart && plan.OffsetStart < int64(n) {
		w.RegionStart = plan.OffsetStart
		w.Region = prefix[plan.OffsetStart:min64(plan.OffsetEnd, int64(n))]
	}

	return w
}

// prefixRange returns the bytes in [lo, hi) from the head or offset region,
// truncated to what was read.
func (w Windows) prefixRange(lo, hi int64) []byte {
	if lo < 0 || hi <= lo {
		return nil
	}
	regionEnd := w.RegionStart + int64(len(w.Region))
	if lo >= w.RegionStart && lo < regionEnd {
		return w.Region[lo-w.RegionStart : min64(hi, regionEnd)-w.RegionStart]
	}
	if lo < int64(len(w.Head)) {
		return w.Head[lo:min64(hi, int64(len(w.Head)))]
	}
	return nil
}

// tailRange returns the bytes in [lo, hi) from the tail window, where
// offsets are measured from the probe start. Callers check TailKnown first.
func (w Windows) tailRange(lo, hi int64) []byte {
	tailStart := w.Size - int64(len(w.Tail))
	if lo < tailStart {
		lo = tailStart
	}
	if hi > w.Size {
		hi = w.Size
	}
	if hi <= lo {
		return nil
	}
	return w.Tail[lo-tailStart : hi-tailStart]
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
