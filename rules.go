package identifile

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gobeaver/identifile/sniff"
	"gopkg.in/yaml.v3"
)

// RuleFile is the YAML document accepted by LoadRules.
//
//	signatures:
//	  - format: arrow
//	    start: ["41 52 52 4f 57 31"]
//	    end: ["text:ARROW1"]
//	    evidence: Starts and ends with 'ARROW1' (Arrow IPC file).
//	  - format: legacy-dump
//	    offset: {anchor: end, at: 64, span: 64, patterns: ["text:DUMP"]}
//	    extensions: [.dmp]
//
// Patterns are hex strings, optionally spaced, or literals prefixed with
// "text:".
type RuleFile struct {
	Signatures []RuleSpec `yaml:"signatures"`
}

// RuleSpec declares one signature rule
type RuleSpec struct {
	Format            string      `yaml:"format"`
	Start             []string    `yaml:"start,omitempty"`
	End               []string    `yaml:"end,omitempty"`
	Offset            *OffsetSpec `yaml:"offset,omitempty"`
	Range             *RangeSpec  `yaml:"range,omitempty"`
	Extensions        []string    `yaml:"extensions,omitempty"`
	Evidence          string      `yaml:"evidence,omitempty"`
	ExtensionEvidence string      `yaml:"extension_evidence,omitempty"`
	Overwrite         bool        `yaml:"overwrite,omitempty"`
}

// OffsetSpec declares an offset condition
type OffsetSpec struct {
	Anchor   string   `yaml:"anchor,omitempty"` // start (default) or end
	At       int64    `yaml:"at"`
	Span     int      `yaml:"span,omitempty"`
	Patterns []string `yaml:"patterns"`
}

// RangeSpec declares an inclusive first-byte range
type RangeSpec struct {
	Low  int `yaml:"low"`
	High int `yaml:"high"`
}

// NamedRule is a decoded rule ready for registration
type NamedRule struct {
	Format    string
	Rule      sniff.Rule
	Overwrite bool
}

// ParseRules decodes a rule document. The whole document is validated
// before anything is returned; any problem fails with ErrInvalidRule.
func ParseRules(r io.Reader) ([]NamedRule, error) {
	var doc RuleFile

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	rules := make([]NamedRule, 0, len(doc.Signatures))
	seen := make(map[string]bool, len(doc.Signatures))
	for i, rs := range doc.Signatures {
		rule, err := rs.toRule()
		if err != nil {
			return nil, fmt.Errorf("%w: signature %d (%s): %v", ErrInvalidRule, i, rs.Format, err)
		}
		if seen[rs.Format] {
			return nil, fmt.Errorf("%w: signature %d: format %q declared twice", ErrInvalidRule, i, rs.Format)
		}
		seen[rs.Format] = true

		rules = append(rules, NamedRule{
			Format:    rs.Format,
			Rule:      rule,
			Overwrite: rs.Overwrite,
		})
	}

	return rules, nil
}

// LoadRules parses a rule document and adds its rules to reg in document
// order. It returns the number of rules added. Registration stops at the
// first duplicate format not marked overwrite.
func LoadRules(r io.Reader, reg *sniff.Registry) (int, error) {
	rules, err := ParseRules(r)
	if err != nil {
		return 0, err
	}

	for i, nr := range rules {
		if err := reg.Add(nr.Format, nr.Rule, nr.Overwrite); err != nil {
			return i, err
		}
	}

	return len(rules), nil
}

// LoadRulesFile loads a rule document from a local file
func LoadRulesFile(path string, reg *sniff.Registry) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &PathError{Op: "loadrules", Path: path, Err: err}
	}
	defer f.Close()

	n, err := LoadRules(f, reg)
	if err != nil {
		return n, &PathError{Op: "loadrules", Path: path, Err: err}
	}
	return n, nil
}

func (rs RuleSpec) toRule() (sniff.Rule, error) {
	var rule sniff.Rule

	format := strings.TrimSpace(rs.Format)
	if format == "" {
		return rule, errors.New("format is required")
	}
	if format == sniff.FormatUnknown {
		return rule, fmt.Errorf("format %q is reserved", format)
	}

	var err error
	if rule.Start, err = decodePatterns(rs.Start); err != nil {
		return rule, fmt.Errorf("start: %w", err)
	}
	if rule.End, err = decodePatterns(rs.End); err != nil {
		return rule, fmt.Errorf("end: %w", err)
	}

	if rs.Offset != nil {
		off, err := rs.Offset.toOffset()
		if err != nil {
			return rule, fmt.Errorf("offset: %w", err)
		}
		rule.Offset = off
	}

	if rs.Range != nil {
		rg := rs.Range
		if rg.Low < 0 || rg.High > 0xFF || rg.Low > rg.High {
			return rule, fmt.Errorf("range: [%d, %d] is not a byte range", rg.Low, rg.High)
		}
		rule.Range = &sniff.ByteRange{Low: byte(rg.Low), High: byte(rg.High)}
	}

	rule.Extensions = rs.Extensions
	rule.Evidence = rs.Evidence
	rule.ExtensionEvidence = rs.ExtensionEvidence

	if !rule.IsStructural() && rule.Range == nil && len(rule.Extensions) == 0 {
		return rule, errors.New("no conditions")
	}
	if rule.Evidence == "" && (rule.IsStructural() || rule.Range != nil) {
		rule.Evidence = fmt.Sprintf("Matches the %s signature.", format)
	}

	return rule, nil
}

func (o OffsetSpec) toOffset() (*sniff.OffsetMatch, error) {
	off := &sniff.OffsetMatch{Offset: o.At, Span: o.Span}

	switch strings.ToLower(o.Anchor) {
	case "", "start":
		off.Anchor = sniff.AnchorStart
	case "end":
		off.Anchor = sniff.AnchorEnd
	default:
		return nil, fmt.Errorf("unknown anchor %q", o.Anchor)
	}

	if o.At < 0 || o.Span < 0 {
		return nil, errors.New("at and span must not be negative")
	}

	patterns, err := decodePatterns(o.Patterns)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, errors.New("patterns are required")
	}
	off.Patterns = patterns

	return off, nil
}

func decodePatterns(in []string) ([][]byte, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make([][]byte, 0, len(in))
	for _, s := range in {
		p, err := decodePattern(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodePattern(s string) ([]byte, error) {
	if text, ok := strings.CutPrefix(s, "text:"); ok {
		if text == "" {
			return nil, errors.New("empty text pattern")
		}
		return []byte(text), nil
	}

	compact := strings.Join(strings.Fields(s), "")
	if compact == "" {
		return nil, errors.New("empty pattern")
	}
	b, err := hex.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", s, err)
	}
	return b, nil
}
