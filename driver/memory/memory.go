package memory

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/identifile"
)

// memoryFile represents a file stored in memory
type memoryFile struct {
	content []byte
	modTime time.Time
}

// watchEntry represents a single watch subscription
type watchEntry struct {
	match func(string) bool
	ch    chan string
	ctx   context.Context
}

// Adapter provides an in-memory implementation of identifile.FileReader.
// Useful for testing and for detecting payloads that never touch disk.
type Adapter struct {
	mu         sync.RWMutex
	files      map[string]*memoryFile
	sequential bool

	// Watch support
	watchMu sync.RWMutex
	watches []*watchEntry
}

// Config holds configuration for the memory adapter
type Config struct {
	// Sequential makes Read return streams without io.Seeker, the way a
	// network body or pipe would arrive.
	Sequential bool
}

// New creates a new in-memory adapter
func New(cfg ...Config) *Adapter {
	var sequential bool
	if len(cfg) > 0 {
		sequential = cfg[0].Sequential
	}

	return &Adapter{
		files:      make(map[string]*memoryFile),
		sequential: sequential,
	}
}

// Write stores content at path, replacing any existing file, and notifies
// matching watchers.
func (a *Adapter) Write(ctx context.Context, p string, content io.Reader) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p = normalizePath(p)

	if !isValidPath(p) {
		return &identifile.PathError{
			Op:   "write",
			Path: p,
			Err:  identifile.ErrNotAllowed,
		}
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return &identifile.PathError{
			Op:   "write",
			Path: p,
			Err:  err,
		}
	}

	a.mu.Lock()
	a.files[p] = &memoryFile{
		content: data,
		modTime: time.Now(),
	}
	a.mu.Unlock()

	// Notify watchers of the change
	go a.notifyWatchers(p)

	return nil
}

// Delete removes a file
func (a *Adapter) Delete(ctx context.Context, p string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.files[p]; !exists {
		return &identifile.PathError{
			Op:   "delete",
			Path: p,
			Err:  identifile.ErrNotExist,
		}
	}
	delete(a.files, p)
	return nil
}

// Read implements identifile.FileReader
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.RLock()
	file, exists := a.files[p]
	a.mu.RUnlock()

	if !exists {
		return nil, &identifile.PathError{
			Op:   "read",
			Path: p,
			Err:  identifile.ErrNotExist,
		}
	}

	// Stored content is never modified in place, so readers can share it
	r := bytes.NewReader(file.content)
	if a.sequential {
		// io.NopCloser hides Seek and ReadAt
		return io.NopCloser(r), nil
	}
	return &seekableFile{Reader: r}, nil
}

// seekableFile exposes the io.Seeker and io.ReaderAt of the stored content
type seekableFile struct {
	*bytes.Reader
}

func (f *seekableFile) Close() error { return nil }

// ListContents implements identifile.FileReader. Directories are implied by
// the stored file paths.
func (a *Adapter) ListContents(ctx context.Context, p string, recursive bool) ([]identifile.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, isFile := a.files[p]; isFile {
		return nil, &identifile.PathError{
			Op:   "listcontents",
			Path: p,
			Err:  identifile.ErrNotDir,
		}
	}

	prefix := ""
	if p != "" {
		prefix = p + "/"
	}

	var files []identifile.FileInfo
	dirs := make(map[string]bool)
	found := p == ""

	for filePath, file := range a.files {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		found = true

		rest := strings.TrimPrefix(filePath, prefix)
		if i := strings.Index(rest, "/"); i >= 0 && !recursive {
			dirs[prefix+rest[:i]] = true
			continue
		}
		if recursive {
			for dir := path.Dir(filePath); dir != "." && dir != p; dir = path.Dir(dir) {
				dirs[dir] = true
			}
		}

		files = append(files, identifile.FileInfo{
			Name:    path.Base(filePath),
			Path:    filePath,
			Size:    int64(len(file.content)),
			ModTime: file.modTime,
		})
	}

	if !found {
		return nil, &identifile.PathError{
			Op:   "listcontents",
			Path: p,
			Err:  identifile.ErrNotExist,
		}
	}

	for dir := range dirs {
		files = append(files, identifile.FileInfo{
			Name:  path.Base(dir),
			Path:  dir,
			IsDir: true,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// FileCount returns the number of files stored
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// normalizePath normalizes a file path
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidPath checks if a path is valid (no directory traversal)
func isValidPath(p string) bool {
	return p != "" && p != ".." && !strings.HasPrefix(p, "../")
}

// ============================================================================
// Watcher Implementation
// ============================================================================

// Watch implements identifile.Watcher. Every Write whose path or base name
// matches pattern is reported; an empty pattern matches all paths.
func (a *Adapter) Watch(ctx context.Context, pattern string) (<-chan string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	match, err := identifile.CompilePattern(pattern)
	if err != nil {
		return nil, &identifile.PathError{Op: "watch", Path: pattern, Err: err}
	}

	entry := &watchEntry{
		match: match,
		ch:    make(chan string),
		ctx:   ctx,
	}

	a.watchMu.Lock()
	a.watches = append(a.watches, entry)
	a.watchMu.Unlock()

	// Clean up when context is cancelled
	go func() {
		<-ctx.Done()
		a.removeWatch(entry)
	}()

	return entry.ch, nil
}

// notifyWatchers sends path to all watchers whose filter matches it
func (a *Adapter) notifyWatchers(p string) {
	a.watchMu.RLock()
	defer a.watchMu.RUnlock()

	for _, entry := range a.watches {
		if !entry.match(p) {
			continue
		}
		select {
		case entry.ch <- p:
		case <-entry.ctx.Done():
		}
	}
}

// removeWatch removes a watch entry and closes its channel. Senders hold
// the read lock, so none is mid-send once the write lock is held.
func (a *Adapter) removeWatch(target *watchEntry) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	for i, entry := range a.watches {
		if entry == target {
			// Remove by swapping with last element
			a.watches[i] = a.watches[len(a.watches)-1]
			a.watches = a.watches[:len(a.watches)-1]
			close(entry.ch)
			return
		}
	}
}

// Ensure Adapter implements interfaces
var (
	_ identifile.FileReader = (*Adapter)(nil)
	_ identifile.Watcher    = (*Adapter)(nil)
)
