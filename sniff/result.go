package sniff

import (
	"fmt"
	"strings"
)

// Confidence is the strength of a detection, one of a fixed set of tiers.
type Confidence float64

const (
	// ConfidenceNone means no evidence was found.
	ConfidenceNone Confidence = 0.0
	// ConfidenceHeuristic backs heuristic-range and extension-hint matches.
	ConfidenceHeuristic Confidence = 0.5
	// ConfidencePartial backs structural matches made without a tail check.
	ConfidencePartial Confidence = 0.8
	// ConfidenceExact backs exact structural matches.
	ConfidenceExact Confidence = 1.0
)

// String formats the confidence with two decimals
func (c Confidence) String() string {
	return fmt.Sprintf("%.2f", float64(c))
}

// MatchKind records which stage of the matcher produced a detection.
type MatchKind string

const (
	MatchNone      MatchKind = "none"
	MatchExact     MatchKind = "exact"
	MatchPartial   MatchKind = "partial"
	MatchHeuristic MatchKind = "heuristic"
	MatchExtension MatchKind = "extension"
)

// unknownEvidence is reported when nothing matched.
const unknownEvidence = "No decisive signature found."

// Detection is the outcome of one detection call. It is a plain value with
// no references to engine state and is safe to share between goroutines.
type Detection struct {
	// Format is the winning format identifier, or FormatUnknown.
	Format string

	// Confidence is the tier of the winning match.
	Confidence Confidence

	// Evidence explains why the format was reported.
	Evidence string

	// Match is the matcher stage that produced the result.
	Match MatchKind
}

// Unknown returns the result reported when no rule matches
func Unknown() Detection {
	return Detection{
		Format:     FormatUnknown,
		Confidence: ConfidenceNone,
		Evidence:   unknownEvidence,
		Match:      MatchNone,
	}
}

// IsKnown returns true if a format was identified
func (d Detection) IsKnown() bool {
	return d.Format != FormatUnknown && d.Format != ""
}

// IsCompressed returns true if the format is a compression format
func (d Detection) IsCompressed() bool {
	return ClassOf(d.Format) == ClassCompressed
}

// IsArchive returns true if the format is an archive container
func (d Detection) IsArchive() bool {
	return ClassOf(d.Format) == ClassArchive
}

// IsColumnar returns true if the format is a columnar data file
func (d Detection) IsColumnar() bool {
	return ClassOf(d.Format) == ClassColumnar
}

// IsPartial returns true if a tail check was skipped to produce the result
func (d Detection) IsPartial() bool {
	return d.Match == MatchPartial
}

// Summary returns a one-line human-readable description, e.g.
//
//	[GZIP] confidence=1.00 – Starts with 1f 8b (gzip).
func (d Detection) Summary() string {
	return fmt.Sprintf("[%s] confidence=%s – %s", strings.ToUpper(d.Format), d.Confidence, d.Evidence)
}

// Metadata returns the detection as a field map for programmatic use
func (d Detection) Metadata() map[string]any {
	return map[string]any{
		"format":        d.Format,
		"confidence":    float64(d.Confidence),
		"evidence":      d.Evidence,
		"match":         string(d.Match),
		"class":         ClassOf(d.Format).String(),
		"is_known":      d.IsKnown(),
		"is_compressed": d.IsCompressed(),
		"is_archive":    d.IsArchive(),
		"is_columnar":   d.IsColumnar(),
	}
}

// Class groups formats by what a caller does with them.
type Class int

const (
	ClassNone Class = iota
	ClassCompressed
	ClassArchive
	ClassColumnar
)

// String returns the class name
func (c Class) String() string {
	switch c {
	case ClassCompressed:
		return "compressed"
	case ClassArchive:
		return "archive"
	case ClassColumnar:
		return "columnar"
	default:
		return "none"
	}
}

// formatClasses is fixed; formats registered at runtime have no class.
var formatClasses = map[string]Class{
	FormatGzip:         ClassCompressed,
	FormatZstd:         ClassCompressed,
	FormatBzip2:        ClassCompressed,
	FormatLZ4Frame:     ClassCompressed,
	FormatXZ:           ClassCompressed,
	FormatSnappyFramed: ClassCompressed,
	FormatSnappySNZ:    ClassCompressed,
	FormatSnappyRaw:    ClassCompressed,
	FormatBrotli:       ClassCompressed,
	FormatZip:          ClassArchive,
	Format7z:           ClassArchive,
	FormatTar:          ClassArchive,
	FormatParquet:      ClassColumnar,
	FormatORC:          ClassColumnar,
}

// ClassOf returns the class of a format identifier
func ClassOf(format string) Class {
	return formatClasses[format]
}
