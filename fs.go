package identifile

import (
	"context"
	"io"
	"time"
)

// FileInfo represents file/directory metadata
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileReader provides read-only access to a storage backend. Detection
// only ever reads, so this is the whole contract a backend must meet.
type FileReader interface {
	// Read returns a stream for reading file content. Streams that also
	// implement io.Seeker are probed with random access.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// ListContents lists directory contents.
	// If recursive is true, includes all descendants.
	ListContents(ctx context.Context, path string, recursive bool) ([]FileInfo, error)
}

// Watcher is implemented by backends that report file changes.
//
// Example:
//
//	if w, ok := fs.(identifile.Watcher); ok {
//	    results, err := sniffer.Watch(ctx, w, fs, "**/*.gz")
//	    ...
//	}
type Watcher interface {
	// Watch returns the paths of files created or written that match the
	// glob pattern. The channel is closed when ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan string, error)
}
