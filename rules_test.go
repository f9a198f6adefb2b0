package identifile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gobeaver/identifile/sniff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arrowRules = `
signatures:
  - format: arrow
    start: ["41 52 52 4f 57 31"]
    end: ["text:ARROW1"]
    evidence: Starts and ends with 'ARROW1' (Arrow IPC file).
  - format: footer
    offset: {anchor: end, at: 16, span: 16, patterns: ["text:FOOT"]}
  - format: legacy-dump
    extensions: [.DMP]
    extension_evidence: Named like a legacy dump.
  - format: high-byte
    range: {low: 0xF0, high: 0xFE}
    evidence: First byte is high.
`

func TestParseRules(t *testing.T) {
	rules, err := ParseRules(strings.NewReader(arrowRules))
	require.NoError(t, err)
	require.Len(t, rules, 4)

	arrow := rules[0]
	assert.Equal(t, "arrow", arrow.Format)
	assert.Equal(t, [][]byte{[]byte("ARROW1")}, arrow.Rule.Start)
	assert.Equal(t, [][]byte{[]byte("ARROW1")}, arrow.Rule.End)
	assert.Equal(t, "Starts and ends with 'ARROW1' (Arrow IPC file).", arrow.Rule.Evidence)

	footer := rules[1].Rule
	require.NotNil(t, footer.Offset)
	assert.Equal(t, sniff.AnchorEnd, footer.Offset.Anchor)
	assert.Equal(t, int64(16), footer.Offset.Offset)
	assert.Equal(t, 16, footer.Offset.Span)
	assert.Equal(t, "Matches the footer signature.", footer.Evidence)

	dump := rules[2].Rule
	assert.Equal(t, []string{".DMP"}, dump.Extensions)
	assert.Empty(t, dump.Evidence)

	high := rules[3].Rule
	require.NotNil(t, high.Range)
	assert.Equal(t, sniff.ByteRange{Low: 0xF0, High: 0xFE}, *high.Range)
}

func TestParseRulesEmpty(t *testing.T) {
	rules, err := ParseRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseRulesInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "signatures: [unterminated"},
		{"unknown field", "signatures:\n  - format: x\n    start: [\"00\"]\n    magic: yes\n"},
		{"missing format", "signatures:\n  - start: [\"00\"]\n"},
		{"reserved format", "signatures:\n  - format: unknown\n    start: [\"00\"]\n"},
		{"no conditions", "signatures:\n  - format: x\n"},
		{"bad hex", "signatures:\n  - format: x\n    start: [\"zz\"]\n"},
		{"odd hex", "signatures:\n  - format: x\n    start: [\"abc\"]\n"},
		{"empty text", "signatures:\n  - format: x\n    start: [\"text:\"]\n"},
		{"bad anchor", "signatures:\n  - format: x\n    offset: {anchor: middle, at: 1, patterns: [\"00\"]}\n"},
		{"negative offset", "signatures:\n  - format: x\n    offset: {at: -1, patterns: [\"00\"]}\n"},
		{"offset without patterns", "signatures:\n  - format: x\n    offset: {at: 4}\n"},
		{"range out of bounds", "signatures:\n  - format: x\n    range: {low: 0, high: 300}\n"},
		{"inverted range", "signatures:\n  - format: x\n    range: {low: 9, high: 1}\n"},
		{"declared twice", "signatures:\n  - format: x\n    start: [\"00\"]\n  - format: x\n    start: [\"01\"]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, IsInvalidRule(err), "error %v is not ErrInvalidRule", err)
		})
	}
}

func TestLoadRules(t *testing.T) {
	reg := sniff.NewDefaultRegistry()

	n, err := LoadRules(strings.NewReader(arrowRules), reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	det := sniff.NewDetector(reg)

	data := append([]byte("ARROW1"), make([]byte, 100)...)
	data = append(data, "ARROW1"...)
	got := det.DetectBytes(data)
	assert.Equal(t, "arrow", got.Format)
	assert.Equal(t, sniff.ConfidenceExact, got.Confidence)

	got = det.DetectBytes(append(make([]byte, 40), "FOOT......"...))
	assert.Equal(t, "footer", got.Format)

	got = det.DetectBytes(make([]byte, 8), sniff.WithExtensionHint(".dmp"))
	assert.Equal(t, "legacy-dump", got.Format)
	assert.Equal(t, "Named like a legacy dump.", got.Evidence)

	got = det.DetectBytes([]byte{0xF3, 0x00})
	assert.Equal(t, "high-byte", got.Format)
	assert.Equal(t, sniff.MatchHeuristic, got.Match)
}

func TestLoadRulesDuplicate(t *testing.T) {
	reg := sniff.NewDefaultRegistry()

	_, err := LoadRules(strings.NewReader("signatures:\n  - format: gzip\n    start: [\"00 11\"]\n"), reg)
	require.Error(t, err)
	assert.True(t, sniff.IsDuplicateFormat(err))

	n, err := LoadRules(strings.NewReader("signatures:\n  - format: gzip\n    start: [\"00 11\"]\n    overwrite: true\n"), reg)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, sniff.FormatGzip, reg.Formats()[0], "overwrite keeps the match position")

	got := sniff.NewDetector(reg).DetectBytes([]byte{0x00, 0x11, 0x22})
	assert.Equal(t, sniff.FormatGzip, got.Format)
}

func TestLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(arrowRules), 0o600))

	reg := sniff.NewRegistry()
	n, err := LoadRulesFile(path, reg)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"arrow", "footer", "legacy-dump", "high-byte"}, reg.Formats())

	_, err = LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml"), reg)
	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "loadrules", pathErr.Op)
}
