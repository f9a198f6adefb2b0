package sniff

import (
	"strings"
)

// Anchor selects where an OffsetMatch offset is measured from.
type Anchor int

const (
	// AnchorStart measures the offset forward from the first byte of the stream.
	AnchorStart Anchor = iota
	// AnchorEnd measures the offset backward from the logical end of the stream.
	AnchorEnd
)

// String returns the anchor name used in rule files and logs
func (a Anchor) String() string {
	if a == AnchorEnd {
		return "end"
	}
	return "start"
}

// OffsetMatch anchors a set of candidate patterns at a fixed position.
//
// With Span == 0 a pattern must sit exactly at the position. With Span > 0 a
// pattern may occur anywhere entirely inside the Span-byte region beginning
// at the position. For AnchorEnd the position is Offset bytes before the end
// of the stream; a searched region (Span > 0) that would start before the
// first byte is clamped to the stream.
type OffsetMatch struct {
	Anchor   Anchor
	Offset   int64
	Span     int
	Patterns [][]byte
}

// ByteRange is an inclusive interval of byte values tested against the first
// byte of a stream.
type ByteRange struct {
	Low  byte
	High byte
}

// Contains reports whether b lies within the range
func (r ByteRange) Contains(b byte) bool {
	return b >= r.Low && b <= r.High
}

// Rule describes how a format is recognized.
//
// Start, End and Offset are structural conditions: when more than one is
// present, all of them must hold. Range and Extensions are fallbacks consulted
// only when no structural condition of any rule holds.
type Rule struct {
	// Start holds candidate prefixes; any one matching at offset 0 satisfies it.
	Start [][]byte

	// End holds candidate suffixes; any one matching at the stream's tail satisfies it.
	End [][]byte

	// Offset holds an optional offset-anchored condition.
	Offset *OffsetMatch

	// Range is an optional first-byte heuristic.
	Range *ByteRange

	// Extensions are lowercase filename suffixes used as a last-resort hint.
	Extensions []string

	// Evidence explains a structural or heuristic match.
	Evidence string

	// ExtensionEvidence explains an extension-hint match. When empty a
	// generic "Based on extension hint (...)" text is used.
	ExtensionEvidence string
}

// IsStructural reports whether the rule declares any byte-level condition
func (r Rule) IsStructural() bool {
	return len(r.Start) > 0 || len(r.End) > 0 || (r.Offset != nil && len(r.Offset.Patterns) > 0)
}

// clone deep-copies the rule, dropping empty patterns and normalizing
// extensions so registered state can never be changed through caller slices.
func (r Rule) clone() Rule {
	out := Rule{
		Start:             clonePatterns(r.Start),
		End:               clonePatterns(r.End),
		Evidence:          r.Evidence,
		ExtensionEvidence: r.ExtensionEvidence,
	}
	if r.Offset != nil {
		off := *r.Offset
		off.Patterns = clonePatterns(r.Offset.Patterns)
		if off.Offset < 0 {
			off.Offset = 0
		}
		if off.Span < 0 {
			off.Span = 0
		}
		if len(off.Patterns) > 0 {
			out.Offset = &off
		}
	}
	if r.Range != nil {
		rng := *r.Range
		out.Range = &rng
	}
	for _, ext := range r.Extensions {
		if ext = normalizeExtension(ext); ext != "" {
			out.Extensions = append(out.Extensions, ext)
		}
	}
	return out
}

func clonePatterns(patterns [][]byte) [][]byte {
	var out [][]byte
	for _, p := range patterns {
		if len(p) == 0 {
			continue
		}
		out = append(out, append([]byte(nil), p...))
	}
	return out
}

// normalizeExtension lowercases an extension and strips surrounding space
// and any leading separators, so ".SNZ", "snz" and " .snz" compare equal.
func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	return strings.TrimLeft(ext, ".")
}

func maxLen(patterns [][]byte) int {
	n := 0
	for _, p := range patterns {
		if len(p) > n {
			n = len(p)
		}
	}
	return n
}
