package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobeaver/identifile"
)

// Adapter provides read-only access to a local directory tree. Files are
// returned as *os.File, so detection reads them with random access.
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter rooted at root
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &identifile.PathError{Op: "open", Path: root, Err: identifile.ErrNotExist}
		}
		return nil, &identifile.PathError{Op: "open", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &identifile.PathError{Op: "open", Path: root, Err: identifile.ErrNotDir}
	}

	return &Adapter{
		root: absRoot,
	}, nil
}

// Root returns the absolute root directory
func (a *Adapter) Root() string {
	return a.root
}

// Read implements identifile.FileReader
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	fullPath := filepath.Join(a.root, filepath.Clean(path))

	// Check if the path is under the root
	if !isPathUnderRoot(a.root, fullPath) {
		return nil, &identifile.PathError{
			Op:   "read",
			Path: path,
			Err:  identifile.ErrNotAllowed,
		}
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &identifile.PathError{
				Op:   "read",
				Path: path,
				Err:  identifile.ErrNotExist,
			}
		}
		return nil, &identifile.PathError{
			Op:   "read",
			Path: path,
			Err:  err,
		}
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close()
		return nil, &identifile.PathError{
			Op:   "read",
			Path: path,
			Err:  identifile.ErrIsDir,
		}
	}

	return f, nil
}

// ListContents implements identifile.FileReader. Paths are relative to the
// adapter root and slash-separated.
func (a *Adapter) ListContents(ctx context.Context, path string, recursive bool) ([]identifile.FileInfo, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// Continue
	}

	fullPath := filepath.Join(a.root, filepath.Clean(path))

	// Check if the path is under the root
	if !isPathUnderRoot(a.root, fullPath) {
		return nil, &identifile.PathError{
			Op:   "listcontents",
			Path: path,
			Err:  identifile.ErrNotAllowed,
		}
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &identifile.PathError{
				Op:   "listcontents",
				Path: path,
				Err:  identifile.ErrNotExist,
			}
		}
		return nil, &identifile.PathError{
			Op:   "listcontents",
			Path: path,
			Err:  err,
		}
	}

	if !info.IsDir() {
		return nil, &identifile.PathError{
			Op:   "listcontents",
			Path: path,
			Err:  identifile.ErrNotDir,
		}
	}

	var files []identifile.FileInfo

	if recursive {
		err = filepath.WalkDir(fullPath, func(walkPath string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}

			// Skip the root directory itself
			if walkPath == fullPath {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			info, err := d.Info()
			if err != nil {
				// Removed between listing and stat
				return nil
			}

			files = append(files, a.fileInfo(walkPath, info))
			return nil
		})
		if err != nil {
			return nil, &identifile.PathError{
				Op:   "listcontents",
				Path: path,
				Err:  err,
			}
		}
	} else {
		entries, err := os.ReadDir(fullPath)
		if err != nil {
			return nil, &identifile.PathError{
				Op:   "listcontents",
				Path: path,
				Err:  err,
			}
		}

		files = make([]identifile.FileInfo, 0, len(entries))
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, a.fileInfo(filepath.Join(fullPath, entry.Name()), info))
		}
	}

	return files, nil
}

func (a *Adapter) fileInfo(fullPath string, info os.FileInfo) identifile.FileInfo {
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil {
		rel = fullPath
	}
	return identifile.FileInfo{
		Name:    info.Name(),
		Path:    filepath.ToSlash(rel),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}

	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Ensure Adapter implements interfaces
var (
	_ identifile.FileReader = (*Adapter)(nil)
	_ identifile.Watcher    = (*Adapter)(nil)
)
