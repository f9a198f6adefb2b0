package identifile

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/gobeaver/identifile/sniff"
	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ScanResult is the detection outcome for one file of a scan or watch
type ScanResult struct {
	Path      string
	Size      int64
	Detection sniff.Detection
	// Err is set when the file could not be read. Detection is then unknown.
	Err error
}

// DetectFile identifies the format of a file held by fs. The path's
// extension is used as the hint unless WithExtensionHint supplies one.
// Backend failures are reported as sniff SourceUnavailable errors.
func (s *Sniffer) DetectFile(ctx context.Context, fs FileReader, p string, opts ...Option) (sniff.Detection, error) {
	if err := ctx.Err(); err != nil {
		return sniff.Unknown(), sniff.NewSourceUnavailableError(p, err)
	}

	rc, err := fs.Read(ctx, p)
	if err != nil {
		return sniff.Unknown(), sniff.NewSourceUnavailableError(p, err)
	}
	defer rc.Close()

	return s.detector.DetectStream(rc, mergeOptions(s.defaults, sniff.PathOptions(p, opts...))...), nil
}

// Scan detects every file below root in fs whose path or base name matches
// the glob pattern. An empty pattern selects all files.
//
// Files are detected concurrently, bounded by Config.ScanWorkers. Results
// are sorted by path. A file that cannot be read is reported through its
// ScanResult.Err and does not stop the scan; listing failures and context
// cancellation do.
func (s *Sniffer) Scan(ctx context.Context, fs FileReader, root string, pattern string) ([]ScanResult, error) {
	match, err := CompilePattern(pattern)
	if err != nil {
		return nil, &PathError{Op: "scan", Path: pattern, Err: err}
	}

	entries, err := fs.ListContents(ctx, root, true)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir || !match(entry.Path) {
			continue
		}
		files = append(files, entry)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	results := make([]ScanResult, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			det, err := s.DetectFile(gCtx, fs, file.Path)
			if err != nil {
				s.logger.WithError(err).WithField("path", file.Path).Warn("scan: file skipped")
			}
			results[i] = ScanResult{
				Path:      file.Path,
				Size:      file.Size,
				Detection: det,
				Err:       err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"root":  root,
		"files": len(results),
	}).Debug("scan complete")

	return results, nil
}

// CompilePattern returns a predicate over slash-separated paths. A path
// matches if either the full path or its base name matches the glob
// pattern; an empty pattern matches everything. Scan, Watch and the
// bundled backends all select files with it.
func CompilePattern(pattern string) (func(string) bool, error) {
	if pattern == "" {
		return func(string) bool { return true }, nil
	}

	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	return func(p string) bool {
		p = filepath.ToSlash(p)
		return g.Match(p) || g.Match(path.Base(p))
	}, nil
}

// Summarize counts scan results per detected format. Unreadable files are
// counted under the empty key.
func Summarize(results []ScanResult) map[string]int {
	counts := make(map[string]int)
	for _, r := range results {
		if r.Err != nil {
			counts[""]++
			continue
		}
		counts[r.Detection.Format]++
	}
	return counts
}
