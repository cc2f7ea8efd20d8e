package watcher

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc is called after a debounced batch of changes with the watched
// files that changed
type RunFunc func(changed []string) error

// Watcher re-runs a decompilation when its inputs change: the seed file and
// the program source (export file or database).
type Watcher struct {
	files     map[string]struct{}
	fsWatcher *fsnotify.Watcher
	run       RunFunc

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// runMu keeps runs from overlapping
	runMu sync.Mutex

	// Callbacks
	onRunStart func(changed []string)
	onRunDone  func(duration time.Duration)
	onError    func(error)

	// Control
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithOnRunStart sets the callback for when a re-run starts
func WithOnRunStart(fn func(changed []string)) WatcherOption {
	return func(w *Watcher) {
		w.onRunStart = fn
	}
}

// WithOnRunDone sets the callback for when a re-run completes
func WithOnRunDone(fn func(duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onRunDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a Watcher for files. Their directories are watched rather than
// the files themselves so that editors replacing a file by rename are seen.
func New(files []string, run RunFunc, opts ...WatcherOption) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		files:         make(map[string]struct{}, len(files)),
		fsWatcher:     fsWatcher,
		run:           run,
		debounceDelay: 500 * time.Millisecond, // Default debounce
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher and waits for a run in progress to finish
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()

		w.pendingMu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.pendingMu.Unlock()
	})
	w.runMu.Lock()
	defer w.runMu.Unlock()
	return err
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.files[name]; !ok {
		return
	}

	// Only care about write/create/remove events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Add to pending files and reset debounce timer
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.pendingFiles[name] = struct{}{}

	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.trigger)
}

// trigger runs after the debounce delay
func (w *Watcher) trigger() {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	if w.onRunStart != nil {
		w.onRunStart(files)
	}

	startTime := time.Now()

	if err := w.run(files); err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("re-run failed: %w", err))
		}
		return
	}

	if w.onRunDone != nil {
		w.onRunDone(time.Since(startTime))
	}
}
