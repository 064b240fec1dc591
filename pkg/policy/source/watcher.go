package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a file source when its files change. Rapid event
// bursts are debounced so editors that write in several steps trigger
// one reload.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	debounce *debouncer
}

// NewWatcher creates a watcher for the source's file or directory.
// A non-positive interval uses a 200ms debounce.
func NewWatcher(src *FileSource, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     src.Path(),
		interval: interval,
		logger:   logger,
		watcher:  fsw,
		debounce: newDebouncer(interval),
	}, nil
}

// Watch blocks until the context is cancelled, invoking onReload after
// each debounced change. Reload errors are logged, never fatal: the
// previously loaded document stays in effect.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	defer w.watcher.Close()
	defer w.debounce.stop()

	if err := w.addPath(w.path); err != nil {
		return fmt.Errorf("watching %s: %w", w.path, err)
	}

	w.logger.Info("watching policy source",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevantEvent(event) {
				continue
			}
			w.logger.Debug("policy file changed", "path", event.Name, "op", event.Op.String())

			w.debounce.trigger(func() {
				w.logger.Info("reloading policies", "path", event.Name)
				if err := onReload(); err != nil {
					w.logger.Error("policy reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

// addPath registers the file or directory with fsnotify. Watching a
// directory covers the files directly under it, which matches what the
// file source loads.
func (w *Watcher) addPath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return w.watcher.Add(path)
}

// relevantEvent filters out chmods and non-policy files.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// debouncer coalesces rapid triggers into one callback after a quiet
// period.
type debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
