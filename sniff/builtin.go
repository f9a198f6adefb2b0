package sniff

// Format identifiers of the built-in signatures.
const (
	FormatUnknown      = "unknown"
	FormatGzip         = "gzip"
	FormatZstd         = "zstd"
	FormatBzip2        = "bzip2"
	FormatLZ4Frame     = "lz4-frame"
	FormatXZ           = "xz"
	FormatZip          = "zip"
	Format7z           = "7z"
	FormatSnappyFramed = "snappy-framed"
	FormatSnappySNZ    = "snappy-snz"
	FormatBrotli       = "brotli"
	FormatParquet      = "parquet"
	FormatORC          = "orc"
	FormatTar          = "tar"
	FormatSnappyRaw    = "snappy-raw"
)

// orcTailSpan covers the ORC postscript (at most 255 bytes) plus its length byte.
const orcTailSpan = 256

type builtinSignature struct {
	format string
	rule   Rule
}

// builtinSignatures is the seed table, in registration order.
// Order is observable: the first matching rule wins.
var builtinSignatures = []builtinSignature{
	{FormatGzip, Rule{
		Start:    [][]byte{{0x1F, 0x8B}},
		Evidence: "Starts with 1f 8b (gzip).",
	}},
	{FormatZstd, Rule{
		Start:    [][]byte{{0x28, 0xB5, 0x2F, 0xFD}},
		Evidence: "Starts with 28 b5 2f fd (zstd).",
	}},
	{FormatBzip2, Rule{
		Start:    [][]byte{[]byte("BZh")},
		Evidence: "Starts with 'BZh' (bzip2).",
	}},
	{FormatLZ4Frame, Rule{
		Start:    [][]byte{{0x04, 0x22, 0x4D, 0x18}},
		Evidence: "Starts with 04 22 4d 18 (LZ4 frame).",
	}},
	{FormatXZ, Rule{
		Start:    [][]byte{{0xFD, '7', 'z', 'X', 'Z', 0x00}},
		Evidence: "Starts with fd 37 7a 58 5a 00 (XZ).",
	}},
	{FormatZip, Rule{
		Start: [][]byte{
			{0x50, 0x4B, 0x03, 0x04},
			{0x50, 0x4B, 0x05, 0x06}, // empty archive
			{0x50, 0x4B, 0x07, 0x08}, // spanned archive
		},
		Evidence: "Starts with PK (ZIP container).",
	}},
	{Format7z, Rule{
		Start:    [][]byte{{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}},
		Evidence: "Starts with 37 7a bc af 27 1c (7z archive).",
	}},
	{FormatSnappyFramed, Rule{
		Start:    [][]byte{append([]byte{0xFF, 0x06, 0x00, 0x00}, "sNaPpY"...)},
		Evidence: "Starts with ff 06 00 00 'sNaPpY' (Snappy framed).",
	}},
	{FormatSnappySNZ, Rule{
		Start:    [][]byte{[]byte("SNZ\x01")},
		Evidence: `Starts with 'SNZ\x01' (obsolete Snappy SNZ format).`,
	}},
	{FormatBrotli, Rule{
		Range:    &ByteRange{Low: 0x91, High: 0x9F},
		Evidence: "First byte in range 0x91-0x9F (Brotli heuristic).",
	}},
	{FormatParquet, Rule{
		Start:    [][]byte{[]byte("PAR1")},
		End:      [][]byte{[]byte("PAR1")},
		Evidence: "Has 'PAR1' at start and end (Parquet).",
	}},
	{FormatORC, Rule{
		Offset: &OffsetMatch{
			Anchor:   AnchorEnd,
			Offset:   orcTailSpan,
			Span:     orcTailSpan,
			Patterns: [][]byte{[]byte("ORC")},
		},
		Evidence: "Tail contains 'ORC' in postscript (ORC).",
	}},
	{FormatTar, Rule{
		Offset: &OffsetMatch{
			Anchor: AnchorStart,
			Offset: 257,
			Patterns: [][]byte{
				[]byte("ustar\x00"), // POSIX
				[]byte("ustar  "),   // GNU
			},
		},
		Evidence: "Has 'ustar' at offset 257 (TAR).",
	}},
	{FormatSnappyRaw, Rule{
		Extensions: []string{".snz", ".snappy", ".sz"},
	}},
}

// RegisterBuiltins adds every built-in signature to r, in table order.
// Existing identifiers are replaced when overwrite is true.
func RegisterBuiltins(r *Registry, overwrite bool) error {
	for _, sig := range builtinSignatures {
		if err := r.Add(sig.format, sig.rule, overwrite); err != nil {
			return err
		}
	}
	return nil
}

// BuiltinRule returns a copy of the built-in rule for format.
func BuiltinRule(format string) (Rule, bool) {
	for _, sig := range builtinSignatures {
		if sig.format == format {
			return sig.rule.clone(), true
		}
	}
	return Rule{}, false
}

// BuiltinFormats lists the built-in format identifiers in registration order.
func BuiltinFormats() []string {
	formats := make([]string, len(builtinSignatures))
	for i, sig := range builtinSignatures {
		formats[i] = sig.format
	}
	return formats
}
