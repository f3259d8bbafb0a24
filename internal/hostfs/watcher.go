package hostfs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must be quiet before it is uploaded.
// Editors often write a file in several steps; uploading on the first event
// would read a partial document.
const DefaultDebounce = 100 * time.Millisecond

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger. Default: slog.Default().
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithDebounce sets the quiet period. Default: DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher uploads files that appear or change in a directory, acting as an
// unattended user of the file picker.
type Watcher struct {
	dir      string
	pattern  string
	input    *Input
	up       Uploader
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching dir. Files whose base name matches pattern are
// uploaded through input to up. Call Run to process events.
func NewWatcher(dir, pattern string, input *Input, up Uploader, opts ...WatchOption) (*Watcher, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("watch pattern %q: %w", pattern, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		pattern:  pattern,
		input:    input,
		up:       up,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run processes file events until ctx is done, then closes the watcher.
// Returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("watching for uploads", "dir", w.dir, "pattern", w.pattern)

	ready := make(chan string, 16)
	deb := newDebouncer(w.debounce, func(path string) {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping watcher")
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.shouldUpload(ev) {
				continue
			}
			w.logger.Debug("file change detected", "file", ev.Name, "op", ev.Op.String())
			deb.touch(ev.Name)

		case path := <-ready:
			task := w.input.Upload(w.up, path)
			w.logger.Debug("upload started", "file", path, "task", task.ID)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// shouldUpload keeps create and write events of matching files.
func (w *Watcher) shouldUpload(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	ok, _ := filepath.Match(w.pattern, filepath.Base(ev.Name))
	return ok
}

// debouncer calls fire once per path after the path has been quiet for delay.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	fire   func(path string)
}

func newDebouncer(delay time.Duration, fire func(path string)) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		fire:   fire,
	}
}

// touch restarts the quiet period for path.
func (d *debouncer) touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.touchLocked(path)
}

func (d *debouncer) touchLocked(path string) {
	if t, ok := d.timers[path]; ok && t.Stop() {
		t.Reset(d.delay)
		return
	}
	// A timer that already fired is left to finish; it owns its entry only
	// while the map still points at it.
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.timers[path] == t {
			delete(d.timers, path)
		}
		d.mu.Unlock()
		d.fire(path)
	})
	d.timers[path] = t
}

// pending reports how many paths are waiting to fire.
func (d *debouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}
