package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/gobeaver/identifile"
)

// Adapter provides read-only access to the entries of a ZIP archive.
//
// Stored (uncompressed) entries are returned as seekable section readers, so
// detection reads them with random access. Deflated entries can only be
// streamed and are detected sequentially.
type Adapter struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	reader *zip.Reader
	files  map[string]*zipEntry
	closed bool
}

// zipEntry represents a file or directory in the ZIP
type zipEntry struct {
	file  *zip.File
	isDir bool
}

// Open opens an existing ZIP file for reading
func Open(zipPath string) (*Adapter, error) {
	file, err := os.Open(zipPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &identifile.PathError{Op: "open", Path: zipPath, Err: identifile.ErrNotExist}
		}
		return nil, &identifile.PathError{Op: "open", Path: zipPath, Err: err}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &identifile.PathError{Op: "open", Path: zipPath, Err: err}
	}
	if info.IsDir() {
		file.Close()
		return nil, &identifile.PathError{Op: "open", Path: zipPath, Err: identifile.ErrIsDir}
	}

	reader, err := zip.NewReader(file, info.Size())
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	a := &Adapter{
		path:   zipPath,
		file:   file,
		reader: reader,
		files:  make(map[string]*zipEntry),
	}

	// Build file index
	for _, f := range reader.File {
		name := normalizePath(f.Name)
		if name == "" || !isValidPath(name) {
			continue
		}
		a.files[name] = &zipEntry{
			file:  f,
			isDir: f.FileInfo().IsDir(),
		}
		a.ensureParentDirs(name)
	}

	return a, nil
}

// Path returns the archive's location on disk
func (a *Adapter) Path() string {
	return a.path
}

// Close releases the archive file
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	return a.file.Close()
}

// Read implements identifile.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, &identifile.PathError{Op: "read", Path: filePath, Err: os.ErrClosed}
	}

	filePath = normalizePath(filePath)
	if !isValidPath(filePath) {
		return nil, &identifile.PathError{Op: "read", Path: filePath, Err: identifile.ErrNotAllowed}
	}

	entry, exists := a.files[filePath]
	if !exists {
		return nil, &identifile.PathError{Op: "read", Path: filePath, Err: identifile.ErrNotExist}
	}
	if entry.isDir {
		return nil, &identifile.PathError{Op: "read", Path: filePath, Err: identifile.ErrIsDir}
	}

	f := entry.file
	if f.Method == zip.Store {
		offset, err := f.DataOffset()
		if err != nil {
			return nil, &identifile.PathError{Op: "read", Path: filePath, Err: err}
		}
		return &storedEntry{
			SectionReader: io.NewSectionReader(a.file, offset, int64(f.UncompressedSize64)),
		}, nil
	}

	rc, err := f.Open()
	if err != nil {
		return nil, &identifile.PathError{Op: "read", Path: filePath, Err: err}
	}
	return rc, nil
}

// storedEntry exposes an uncompressed entry with random access
type storedEntry struct {
	*io.SectionReader
}

// Close is a no-op; the archive owns the file handle
func (storedEntry) Close() error {
	return nil
}

// ListContents lists files and directories at the given path
func (a *Adapter) ListContents(ctx context.Context, prefix string, recursive bool) ([]identifile.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	prefix = normalizePath(prefix)
	if !isValidPath(prefix) {
		return nil, &identifile.PathError{Op: "listcontents", Path: prefix, Err: identifile.ErrNotAllowed}
	}

	if prefix != "" {
		entry, exists := a.files[prefix]
		if !exists {
			return nil, &identifile.PathError{Op: "listcontents", Path: prefix, Err: identifile.ErrNotExist}
		}
		if !entry.isDir {
			return nil, &identifile.PathError{Op: "listcontents", Path: prefix, Err: identifile.ErrNotDir}
		}
	}

	var files []identifile.FileInfo
	for entryPath, entry := range a.files {
		rel := entryPath
		if prefix != "" {
			if !strings.HasPrefix(entryPath, prefix+"/") {
				continue
			}
			rel = strings.TrimPrefix(entryPath, prefix+"/")
		}
		if !recursive && strings.Contains(rel, "/") {
			continue
		}
		files = append(files, entry.info(entryPath))
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func (e *zipEntry) info(entryPath string) identifile.FileInfo {
	fi := identifile.FileInfo{
		Name:  path.Base(entryPath),
		Path:  entryPath,
		IsDir: e.isDir,
	}
	if e.file != nil {
		fi.ModTime = e.file.Modified
		if !e.isDir {
			fi.Size = int64(e.file.UncompressedSize64)
		}
	}
	return fi
}

// ensureParentDirs creates parent directory entries
func (a *Adapter) ensureParentDirs(filePath string) {
	dir := path.Dir(filePath)
	for dir != "" && dir != "." && dir != "/" {
		if _, exists := a.files[dir]; !exists {
			a.files[dir] = &zipEntry{isDir: true}
		}
		dir = path.Dir(dir)
	}
}

// normalizePath normalizes a file path
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidPath checks if path is valid (no traversal)
func isValidPath(p string) bool {
	return p != ".." && !strings.HasPrefix(p, "../")
}

var _ identifile.FileReader = (*Adapter)(nil)
