package watcher

import (
	"os"
	"time"

	log "github.com/nghyane/llm-wire/internal/logging"
	"github.com/nghyane/llm-wire/internal/provider"
)

func (w *Watcher) scheduleReload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.reloadTimer = time.AfterFunc(reloadDebounce, func() {
		w.reloadMu.Lock()
		w.reloadTimer = nil
		w.reloadMu.Unlock()
		w.reloadIfChanged()
	})
}

func (w *Watcher) stopReloadTimer() {
	w.reloadMu.Lock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
		w.reloadTimer = nil
	}
	w.reloadMu.Unlock()
}

// reloadIfChanged reloads the directory unless its definition files hash the
// same as at the last applied reload. It reports whether a reload happened.
func (w *Watcher) reloadIfChanged() bool {
	hash, err := hashDefinitionFiles(w.dir)
	if err != nil {
		log.Errorf("failed to hash providers directory: %v", err)
		return false
	}

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if w.lastHash != "" && w.lastHash == hash {
		log.Debugf("providers directory unchanged (hash match), skipping reload")
		return false
	}

	defs, loadErr := provider.LoadDir(w.dir)
	if loadErr != nil {
		log.WithError(loadErr).Warn("some provider definitions failed to load")
		defs = w.keepPrevious(defs)
	}
	w.loaded = make(map[string]*provider.Definition, len(defs))
	for _, def := range defs {
		w.loaded[def.Source] = def
	}
	w.registry.Replace(defs)
	w.lastHash = hash
	log.Infof("providers reloaded: %d from %s, %d total", len(defs), w.dir, w.registry.Len())

	if w.onReload != nil {
		w.onReload(defs, loadErr)
	}
	return true
}

// keepPrevious appends the last good definition of every file that still
// exists but no longer loads, so a half-saved edit does not drop a provider.
// Must be called with hashMu held.
func (w *Watcher) keepPrevious(defs []*provider.Definition) []*provider.Definition {
	sources := make(map[string]bool, len(defs))
	names := make(map[string]bool, len(defs))
	for _, def := range defs {
		sources[def.Source] = true
		names[def.Name] = true
	}
	for source, prev := range w.loaded {
		if sources[source] || names[prev.Name] {
			continue
		}
		if _, err := os.Stat(source); err != nil {
			continue
		}
		log.WithField("provider", prev.Name).WithField("file", source).
			Warn("definition failed to reload, keeping previous version")
		defs = append(defs, prev)
		names[prev.Name] = true
	}
	return defs
}
