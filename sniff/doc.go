// Package sniff identifies the binary format of a stream by matching
// fixed-position byte signatures against its head and tail, falling back to
// a first-byte heuristic and then to a filename-extension hint.
//
// The engine only classifies. It never decodes, never validates payloads and
// never fails on malformed or truncated content: a stream that is too short
// for a signature simply does not match it.
//
// # Quick Start
//
//	det := sniff.NewDetector(nil) // process-wide default registry
//	d := det.DetectStream(r, sniff.WithExtensionHint(".snz"))
//	fmt.Println(d.Summary())
//	// [GZIP] confidence=1.00 – Starts with 1f 8b (gzip).
//
// # Precedence
//
// Rules are evaluated in registration order and the first decisive hit wins:
//
//   - structural rules (Start, End, Offset). A rule declaring several of
//     them matches only when all hold.
//   - first-byte heuristic ranges (brotli), at ConfidenceHeuristic
//   - extension hints (snappy-raw), at ConfidenceHeuristic
//   - otherwise FormatUnknown at ConfidenceNone
//
// A structural match against the stream beats any extension hint, even when
// the hint names another registered format.
//
// # Seekable and Sequential Sources
//
// Sources implementing io.Seeker are read at the head, at the offset region
// and at the tail independently; their position is restored afterwards.
// Sequential sources are read forward just far enough for head and
// start-anchored offset rules. Tail rules (Parquet, ORC) cannot be evaluated
// then, and structural matches are reported at ConfidencePartial with a
// "partial detection" note. WithBufferNonSeekable(true) reads the whole
// stream into memory instead and restores full confidence.
//
// # Registry
//
// A Registry is an ordered, concurrency-safe rule set. Each mutation
// publishes an immutable Snapshot, so a detection running concurrently with
// Add or Remove sees one consistent rule set:
//
//	reg := sniff.NewDefaultRegistry()
//	err := reg.Add("custom", sniff.Rule{
//	    Start:    [][]byte{{0xAA, 0xBB}},
//	    Evidence: "Custom format start.",
//	}, false)
//	if sniff.IsDuplicateFormat(err) {
//	    // already registered, pass overwrite=true to replace it
//	}
package sniff
