// Package identifile identifies compressed, archived and columnar data by its
// bytes, without trusting file names.
//
// The detection engine lives in package [github.com/gobeaver/identifile/sniff].
// This package wraps it in a configured service ([Sniffer]) and adds what an
// application needs around it: environment configuration, a process-wide
// default instance, detection over storage backends, directory scans,
// watch-driven detection and YAML rule files.
//
// # Basic Usage
//
//	det := identifile.DetectStream(r)
//	fmt.Println(det.Summary())
//	// [GZIP] confidence=1.00 – Starts with 1f 8b (gzip).
//
//	det, err := identifile.DetectPath("/data/part-0001")
//	if err != nil {
//	    log.Fatal(err) // path could not be opened
//	}
//
// # Configuration
//
// [Config] is read from the environment with beaver-kit's BEAVER_ prefix:
//
//	BEAVER_IDENTIFILE_DISABLE_EXTENSION_HINT=false
//	BEAVER_IDENTIFILE_BUFFER_NON_SEEKABLE=false
//	BEAVER_IDENTIFILE_RULES_FILE=/etc/identifile/rules.yaml
//	BEAVER_IDENTIFILE_SCAN_WORKERS=8
//	BEAVER_IDENTIFILE_LOG_LEVEL=warn
//	BEAVER_IDENTIFILE_LOG_FORMAT=text
//
// Use [WithPrefix] for a different prefix, or [New] with an explicit Config.
//
// # Storage Backends
//
// Any [FileReader] can be scanned. Three backends are provided:
//
//   - Local filesystem (github.com/gobeaver/identifile/driver/local)
//   - In-memory (github.com/gobeaver/identifile/driver/memory)
//   - Entries of a ZIP archive (github.com/gobeaver/identifile/driver/zip)
//
// The local and in-memory backends implement [Watcher], so new files can be
// detected as they arrive:
//
//	fs, _ := local.New("/data/incoming")
//	results, err := sniffer.Watch(ctx, fs, fs, "**/*")
//	for r := range results {
//	    log.Println(r.Path, r.Detection.Summary())
//	}
//
// # Rule Files
//
// Additional signatures can be declared in YAML and loaded with [LoadRules]
// or through Config.RulesFile. See [RuleFile] for the format.
package identifile
