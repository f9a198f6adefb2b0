package sniff

import (
	"bytes"
	"fmt"
)

// partialSuffix annotates structural matches made without a tail check.
const partialSuffix = " (partial detection: non-seekable stream, tail not checked)"

type outcome int

const (
	noMatch outcome = iota
	matched
	unavailable
)

// Match evaluates the snapshot's rules against w in fixed precedence:
//
//  1. structural rules (Start, End, Offset; all declared conditions must
//     hold), first in registration order wins;
//  2. first-byte heuristic ranges;
//  3. the extension hint, when useHint is true and hint is not empty;
//  4. otherwise the unknown result.
//
// A structural rule whose conditions cannot all be evaluated, because the
// tail was not read, is never accepted. Structural matches made from a
// partial read carry ConfidencePartial and an annotated evidence string.
func Match(s *Snapshot, w Windows, hint string, useHint bool) Detection {
	for _, e := range s.entries {
		if !e.rule.IsStructural() {
			continue
		}
		if evalStructural(e.rule, w) != matched {
			continue
		}
		if w.Partial {
			return Detection{
				Format:     e.format,
				Confidence: ConfidencePartial,
				Evidence:   e.rule.Evidence + partialSuffix,
				Match:      MatchPartial,
			}
		}
		return Detection{
			Format:     e.format,
			Confidence: ConfidenceExact,
			Evidence:   e.rule.Evidence,
			Match:      MatchExact,
		}
	}

	if len(w.Head) > 0 {
		first := w.Head[0]
		for _, e := range s.entries {
			if e.rule.Range != nil && e.rule.Range.Contains(first) {
				return Detection{
					Format:     e.format,
					Confidence: ConfidenceHeuristic,
					Evidence:   e.rule.Evidence,
					Match:      MatchHeuristic,
				}
			}
		}
	}

	if useHint {
		if ext := normalizeExtension(hint); ext != "" {
			for _, e := range s.entries {
				for _, candidate := range e.rule.Extensions {
					if candidate != ext {
						continue
					}
					evidence := e.rule.ExtensionEvidence
					if evidence == "" {
						evidence = fmt.Sprintf("Based on extension hint (.%s).", ext)
					}
					return Detection{
						Format:     e.format,
						Confidence: ConfidenceHeuristic,
						Evidence:   evidence,
						Match:      MatchExtension,
					}
				}
			}
		}
	}

	return Unknown()
}

// evalStructural combines every declared structural condition of rule.
// A failed condition wins over an unevaluable one.
func evalStructural(rule Rule, w Windows) outcome {
	result := matched
	combine := func(o outcome) bool {
		switch o {
		case noMatch:
			result = noMatch
			return false
		case unavailable:
			result = unavailable
		}
		return true
	}

	if len(rule.Start) > 0 && !combine(evalStart(rule.Start, w)) {
		return result
	}
	if len(rule.End) > 0 && !combine(evalEnd(rule.End, w)) {
		return result
	}
	if rule.Offset != nil && !combine(evalOffset(rule.Offset, w)) {
		return result
	}
	return result
}

func evalStart(patterns [][]byte, w Windows) outcome {
	for _, p := range patterns {
		if bytes.HasPrefix(w.Head, p) {
			return matched
		}
	}
	return noMatch
}

func evalEnd(patterns [][]byte, w Windows) outcome {
	if !w.TailKnown() {
		return unavailable
	}
	for _, p := range patterns {
		if bytes.HasSuffix(w.Tail, p) {
			return matched
		}
	}
	return noMatch
}

func evalOffset(m *OffsetMatch, w Windows) outcome {
	if m.Anchor == AnchorEnd {
		if !w.TailKnown() {
			return unavailable
		}
		pos := w.Size - m.Offset
		if m.Span > 0 {
			lo := pos
			if lo < 0 {
				lo = 0
			}
			return containsAny(w.tailRange(lo, pos+int64(m.Span)), m.Patterns)
		}
		if pos < 0 {
			return noMatch
		}
		for _, p := range m.Patterns {
			if bytes.Equal(w.tailRange(pos, pos+int64(len(p))), p) {
				return matched
			}
		}
		return noMatch
	}

	if m.Span > 0 {
		return containsAny(w.prefixRange(m.Offset, m.Offset+int64(m.Span)), m.Patterns)
	}
	for _, p := range m.Patterns {
		if bytes.Equal(w.prefixRange(m.Offset, m.Offset+int64(len(p))), p) {
			return matched
		}
	}
	return noMatch
}

func containsAny(region []byte, patterns [][]byte) outcome {
	for _, p := range patterns {
		if bytes.Contains(region, p) {
			return matched
		}
	}
	return noMatch
}
