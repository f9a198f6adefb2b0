package sniff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Detector classifies streams against a Registry.
type Detector struct {
	registry *Registry
	logger   logrus.FieldLogger
}

// DetectorOption configures a Detector
type DetectorOption func(*Detector)

// WithLogger sets the logger used for debug traces and read failures
func WithLogger(logger logrus.FieldLogger) DetectorOption {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector creates a detector over registry. A nil registry selects
// DefaultRegistry.
func NewDetector(registry *Registry, opts ...DetectorOption) *Detector {
	if registry == nil {
		registry = DefaultRegistry()
	}
	d := &Detector{
		registry: registry,
		logger:   discardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the detector matches against
func (d *Detector) Registry() *Registry {
	return d.registry
}

// DetectStream identifies the format of src.
//
// It never fails: unreadable or truncated content yields fewer matches, and
// read errors are logged. See Probe for how seekable and sequential sources
// are read.
func (d *Detector) DetectStream(src io.Reader, opts ...Option) Detection {
	o := processOptions(opts...)
	snap := d.registry.Snapshot()

	w := Probe(src, snap.Plan(), o.BufferNonSeekable)
	if w.Err != nil {
		d.logger.WithError(w.Err).WithField("mode", w.Mode).Warn("source read failed, detecting on partial data")
	}

	det := Match(snap, w, o.ExtensionHint, o.UseExtensionHint)

	d.logger.WithFields(logrus.Fields{
		"format":      det.Format,
		"confidence":  det.Confidence.String(),
		"match":       det.Match,
		"mode":        w.Mode,
		"head":        len(w.Head),
		"tail":        len(w.Tail),
		"rules":       snap.Len(),
		"fingerprint": fmt.Sprintf("%016x", snap.Fingerprint()),
	}).Debug("detection complete")

	return det
}

// DetectBytes identifies the format of an in-memory payload
func (d *Detector) DetectBytes(data []byte, opts ...Option) Detection {
	return d.DetectStream(bytes.NewReader(data), opts...)
}

// DetectPath opens path read-only and identifies its format. The path's
// extension is used as the hint unless WithExtensionHint supplies one.
// Failure to open the path is reported as a SourceUnavailable error.
func (d *Detector) DetectPath(path string, opts ...Option) (Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown(), NewSourceUnavailableError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Unknown(), NewSourceUnavailableError(path, err)
	}
	if info.IsDir() {
		return Unknown(), NewSourceUnavailableError(path, errors.New("is a directory"))
	}

	return d.DetectStream(f, PathOptions(path, opts...)...), nil
}

// PathOptions prepends the hint derived from path to opts, so an explicit
// WithExtensionHint in opts still takes precedence.
func PathOptions(path string, opts ...Option) []Option {
	return append([]Option{WithExtensionHint(filepath.Ext(path))}, opts...)
}

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
