// Package watcher hot reloads provider definitions when files in the
// providers directory change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
)

const (
	// reloadDebounce coalesces the burst of events editors emit on save.
	reloadDebounce = 150 * time.Millisecond
)

// Watcher keeps a provider.Registry in sync with a directory of YAML
// definitions.
type Watcher struct {
	dir      string
	registry *provider.Registry
	onReload func(defs []*provider.Definition, err error)
	watcher  *fsnotify.Watcher

	reloadMu    sync.Mutex
	reloadTimer *time.Timer

	hashMu   sync.RWMutex
	lastHash string
	loaded   map[string]*provider.Definition
}

// NewWatcher creates a watcher for dir. onReload, if set, runs after every
// applied reload with the loaded definitions and any per-file load errors.
func NewWatcher(dir string, registry *provider.Registry, onReload func([]*provider.Definition, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      filepath.Clean(dir),
		registry: registry,
		onReload: onReload,
		watcher:  fsw,
	}, nil
}

// Start creates the directory if needed, loads it once, then watches it until
// ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		log.Errorf("failed to create providers directory %s: %v", w.dir, err)
		return err
	}
	if err := w.watcher.Add(w.dir); err != nil {
		log.Errorf("failed to watch providers directory %s: %v", w.dir, err)
		return err
	}
	log.Debugf("watching providers directory: %s", w.dir)

	w.reloadIfChanged()
	go w.processEvents(ctx)
	return nil
}

func (w *Watcher) Stop() error {
	w.stopReloadTimer()
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	ops := fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if event.Op&ops == 0 || !provider.IsDefinitionFile(event.Name) {
		return
	}
	if filepath.Dir(filepath.Clean(event.Name)) != w.dir {
		return
	}
	log.Debugf("providers directory event: %s %s", event.Op.String(), filepath.Base(event.Name))
	w.scheduleReload()
}
