package identifile

import (
	"context"
)

// Watch detects files as the backend reports them created or written. Each
// notification from w whose path matches pattern yields one ScanResult, so a file written several
// times is detected several times. The returned channel is closed when ctx
// is done or the backend stops watching.
func (s *Sniffer) Watch(ctx context.Context, w Watcher, fs FileReader, pattern string) (<-chan ScanResult, error) {
	match, err := CompilePattern(pattern)
	if err != nil {
		return nil, &PathError{Op: "watch", Path: pattern, Err: err}
	}

	paths, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make(chan ScanResult)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-paths:
				if !ok {
					return
				}
				if !match(p) {
					continue
				}

				det, err := s.DetectFile(ctx, fs, p)
				if err != nil {
					s.logger.WithError(err).WithField("path", p).Warn("watch: file skipped")
				}

				select {
				case out <- ScanResult{Path: p, Detection: det, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
