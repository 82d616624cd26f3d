// Package watcher notifies when files under the configured source and
// output roots change, so the report jobs can be re-resolved.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/mrcov/internal/ctxlog"
	"github.com/felixgeelhaar/mrcov/internal/domain"
)

// Watcher watches directory trees recursively. Directories created while
// watching are added as they appear.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.RWMutex
	include domain.IncludeFilter
}

type Option func(*Watcher)

// WithDebounce sets the quiet period after the last change before a pass.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithInclude sets the files to react to. The zero filter means every file,
// which is what the scanner enumerates without include patterns.
func WithInclude(filter domain.IncludeFilter) Option {
	return func(w *Watcher) {
		w.include = filter
	}
}

func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fsw,
		debounce: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetInclude replaces the include filter while watching.
func (w *Watcher) SetInclude(filter domain.IncludeFilter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.include = filter
}

// WatchDir adds root and every directory below it, hidden ones excepted.
// A root that does not exist yet is picked up through its nearest existing
// parent: once created it is watched like any new directory.
func (w *Watcher) WatchDir(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		parent, ok := existingParent(root)
		if !ok {
			return err
		}
		return w.watcher.Add(parent)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "watch", Path: root, Err: errors.New("not a directory")}
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Events emits once per burst of relevant changes. The channel closes when
// ctx is done or the watcher is closed.
func (w *Watcher) Events(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})
	log := ctxlog.FromContext(ctx)

	go func() {
		defer close(out)

		var timer *time.Timer
		var timerCh <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.WatchDir(event.Name); err != nil {
							log.Warn("cannot watch new directory", "dir", event.Name, "error", err)
						}
						continue
					}
				}
				if !isChange(event.Op) || !w.relevant(event.Name) {
					continue
				}
				log.Debug("file changed", "path", event.Name, "op", event.Op.String())

				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C

			case <-timerCh:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
				timerCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watch error", "error", err)
			}
		}
	}()

	return out
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// isChange reports operations that can change an overlay: a file appearing,
// being rewritten, or disappearing.
func isChange(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

func (w *Watcher) relevant(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.include.Match(path)
}

func existingParent(dir string) (string, bool) {
	dir = filepath.Clean(dir)
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		if info, err := os.Stat(parent); err == nil && info.IsDir() {
			return parent, true
		}
		dir = parent
	}
}
