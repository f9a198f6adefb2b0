package local

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gobeaver/identifile"
)

// Watch implements identifile.Watcher using fsnotify. It reports the
// root-relative path of every file created or written below the root whose
// path or base name matches pattern. Directories created while watching are
// watched as well.
func (a *Adapter) Watch(ctx context.Context, pattern string) (<-chan string, error) {
	match, err := identifile.CompilePattern(pattern)
	if err != nil {
		return nil, &identifile.PathError{Op: "watch", Path: pattern, Err: err}
	}

	watcher, err := newFSWatcher()
	if err != nil {
		return nil, &identifile.PathError{Op: "watch", Path: pattern, Err: err}
	}

	if err := addTree(watcher, a.root); err != nil {
		watcher.Close()
		return nil, &identifile.PathError{Op: "watch", Path: pattern, Err: err}
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events():
				if !ok {
					return
				}
				if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
					continue
				}

				info, err := os.Stat(event.Name)
				if err != nil {
					continue
				}
				if info.IsDir() {
					if event.Op.Has(fsnotify.Create) {
						_ = addTree(watcher, event.Name)
					}
					continue
				}

				relPath, err := filepath.Rel(a.root, event.Name)
				if err != nil {
					continue
				}
				relPath = filepath.ToSlash(relPath)
				if !match(relPath) {
					continue
				}

				select {
				case out <- relPath:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors():
				if !ok {
					return
				}
				// Keep watching; a lost event only delays detection
			}
		}
	}()

	return out, nil
}

// addTree watches dir and every directory below it
func addTree(w fsWatcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// fsWatcher wraps fsnotify.Watcher with a simpler interface
type fsWatcher interface {
	Add(path string) error
	Close() error
	Events() <-chan fsEvent
	Errors() <-chan error
}

type fsEvent struct {
	Name string
	Op   fsnotify.Op
}

// fsnotifyWatcher wraps fsnotify.Watcher to implement fsWatcher interface
type fsnotifyWatcher struct {
	watcher *fsnotify.Watcher
	events  chan fsEvent
	errors  chan error
	done    chan struct{}
}

// newFSWatcher creates a new file system watcher using fsnotify
func newFSWatcher() (fsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fsnotifyWatcher{
		watcher: w,
		events:  make(chan fsEvent),
		errors:  make(chan error),
		done:    make(chan struct{}),
	}

	// Forward events until closed
	go func() {
		defer close(fw.events)
		defer close(fw.errors)
		for {
			select {
			case <-fw.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case fw.events <- fsEvent{Name: event.Name, Op: event.Op}:
				case <-fw.done:
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				select {
				case fw.errors <- err:
				case <-fw.done:
					return
				}
			}
		}
	}()

	return fw, nil
}

func (w *fsnotifyWatcher) Add(path string) error {
	return w.watcher.Add(path)
}

func (w *fsnotifyWatcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	return w.watcher.Close()
}

func (w *fsnotifyWatcher) Events() <-chan fsEvent {
	return w.events
}

func (w *fsnotifyWatcher) Errors() <-chan error {
	return w.errors
}
