package prompt

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the loader cache when template override files
// change on disk, so edits take effect without a restart.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   *Loader
	debounce time.Duration

	timer *time.Timer
	mu    sync.Mutex

	done chan struct{}
}

// NewWatcher creates a watcher over the given override directory.
func NewWatcher(loader *Loader, overrideDir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		loader:   loader,
		debounce: 500 * time.Millisecond, // Debounce rapid changes
		done:     make(chan struct{}),
	}

	// Watch the override dir and its task subdirectory if present
	if _, err := os.Stat(overrideDir); err == nil {
		if err := fw.Add(overrideDir); err != nil {
			fw.Close()
			return nil, err
		}
		tasksDir := filepath.Join(overrideDir, "tasks")
		if _, err := os.Stat(tasksDir); err == nil {
			if err := fw.Add(tasksDir); err != nil {
				fw.Close()
				return nil, err
			}
		}
	}

	return w, nil
}

// Start begins processing filesystem events until Stop is called.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("template watcher: %v", err)
		case <-w.done:
			return
		}
	}
}

// scheduleReload resets the debounce timer; the cache is cleared once
// events settle.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.loader.ClearCache()
		log.Printf("template overrides changed, cache cleared")
	})
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	close(w.done)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
