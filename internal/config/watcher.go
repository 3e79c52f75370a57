package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc receives a freshly parsed configuration. A returned error means
// the configuration was rejected and the previous one stays in effect.
type ReloadFunc func(*Config) error

// Watcher reloads the configuration file when it changes on disk. Rapid
// successive writes are coalesced.
type Watcher struct {
	path     string
	reload   ReloadFunc
	log      *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher returns a watcher for path. It does nothing until Start.
func NewWatcher(path string, reload ReloadFunc, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		reload:   reload,
		log:      log.Named("config"),
		debounce: 250 * time.Millisecond,
	}
}

// Start begins watching. The parent directory is watched, not the file, so
// editors that save by rename are seen.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = fw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	go w.run(ctx, fw, w.stopCh, w.doneCh)
	w.log.Info("watching configuration", zap.String("path", w.path))
	return nil
}

// Stop ends watching and waits for the watch goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done, fw := w.doneCh, w.watcher
	w.mu.Unlock()

	<-done
	if err := fw.Close(); err != nil {
		w.log.Warn("error closing watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			fire = time.After(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		case <-fire:
			fire = nil
			w.apply()
		}
	}
}

func (w *Watcher) apply() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("config unreadable, keeping current", zap.Error(err))
		return
	}
	cfg, err := Parse(data)
	if err != nil {
		w.log.Warn("config invalid, keeping current", zap.Error(err))
		return
	}
	if err := w.reload(cfg); err != nil {
		w.log.Warn("config rejected, keeping current", zap.Error(err))
		return
	}
	w.log.Info("config reloaded", zap.Int("bindings", len(cfg.Bindings)))
}
