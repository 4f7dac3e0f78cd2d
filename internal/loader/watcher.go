package loader

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change before
// calling its handler.
const DefaultDebounce = 500 * time.Millisecond

// Watcher calls a handler when a file changes. It watches the file's
// directory so that sibling files sharing the base name (SQLite "-wal" and
// "-journal" files, editor rename-on-save) also count as changes. Bursts of
// events are coalesced into one call.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   *slog.Logger
}

// NewWatcher creates a watcher for path. A debounce of zero uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, onChange func(ctx context.Context), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching graph file", "path", w.path)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.matches(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "err", err)
		case <-timerC:
			timerC = nil
			w.logger.Info("graph file changed", "path", w.path)
			w.onChange(ctx)
		}
	}
}

// matches reports whether event concerns the watched file or one of its
// siblings.
func (w *Watcher) matches(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if filepath.Dir(name) != filepath.Dir(w.path) {
		return false
	}
	return strings.HasPrefix(filepath.Base(name), filepath.Base(w.path))
}
