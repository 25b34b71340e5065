package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Chilanguiux/Image-smart-finder/internal/scanner"
)

// Config holds configuration for the library watcher
type Config struct {
	Root       string               // Directory to watch
	Extensions scanner.ExtensionSet // Image suffixes that trigger a rescan (empty = built-in defaults)
	Debounce   time.Duration        // Quiet period before triggering (default: 2s)
}

// RescanFunc is called, debounced, when watched image files change.
type RescanFunc func(root string)

// Watcher monitors the library root and requests a rescan when image files
// appear, change or disappear. Bursts of events collapse into one rescan.
type Watcher struct {
	config  Config
	rescan  RescanFunc
	log     *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	timer   *time.Timer
	done    chan struct{}
}

// NewWatcher creates a watcher that calls rescan after changes settle.
func NewWatcher(config Config, rescan RescanFunc) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = 2 * time.Second
	}
	if len(config.Extensions) == 0 {
		config.Extensions = scanner.DefaultExtensions()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		config:  config,
		rescan:  rescan,
		log:     slog.Default().With("component", "library-watcher"),
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the configured root.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher is already running")
	}
	if w.config.Root == "" {
		return fmt.Errorf("watch root cannot be empty")
	}

	if err := w.addRecursive(w.config.Root); err != nil {
		return fmt.Errorf("failed to add watch directory: %w", err)
	}

	w.running = true
	w.log.Info("Starting library watcher", "root", w.config.Root)

	go w.watchLoop()
	return nil
}

// Stop stops the watcher. A pending debounced rescan is dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.log.Info("Stopping library watcher", "root", w.config.Root)
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	close(w.done)

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	return nil
}

// addRecursive watches root and every directory below it. fsnotify watches
// are not recursive, and images can change anywhere in the tree. Unreadable
// subdirectories are skipped; only a failure on root itself is an error.
func (w *Watcher) addRecursive(root string) error {
	if err := w.watcher.Add(root); err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Debug("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Debug("Not watching directory", "path", path, "error", err)
		}
		return nil
	})
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// watchLoop is the main event loop for file system events
func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("File watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// handleEvent schedules a debounced rescan for relevant events.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	relevant := event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
	if !relevant {
		return
	}

	if !w.isImageFile(event.Name) {
		// fsnotify watches are not recursive; new subdirectories may carry
		// images, so watch each one as it appears.
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.watcher.Add(event.Name); err != nil {
					w.log.Debug("Not watching new directory", "path", event.Name, "error", err)
				}
				w.scheduleRescan()
			}
		}
		return
	}

	w.log.Debug("Library change detected", "path", event.Name, "event", event.Op.String())
	w.scheduleRescan()
}

// scheduleRescan arms the debounce timer, restarting it if already armed.
func (w *Watcher) scheduleRescan() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if !running {
			return
		}
		w.log.Info("Library changed, triggering rescan", "root", w.config.Root)
		w.rescan(w.config.Root)
	})
}

// isImageFile checks if a path matches the watched extensions.
func (w *Watcher) isImageFile(path string) bool {
	return w.config.Extensions.Matches(filepath.Base(path))
}
