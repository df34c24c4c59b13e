package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider names to definitions. Definitions handed out are
// shared and must be treated as read-only.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		r.defs[d.Name] = d
	}
	return r
}

// NewDefaultRegistry holds the presets overlaid with defs.
func NewDefaultRegistry(defs ...*Definition) *Registry {
	return NewRegistry(append(Presets(), defs...)...)
}

func (r *Registry) Get(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return d, nil
}

func (r *Registry) Put(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
}

// Replace swaps the whole set at once. Presets are kept unless defs
// overrides them by name.
func (r *Registry) Replace(defs []*Definition) {
	next := make(map[string]*Definition, len(defs)+4)
	for _, d := range Presets() {
		next[d.Name] = d
	}
	for _, d := range defs {
		next[d.Name] = d
	}
	r.mu.Lock()
	r.defs = next
	r.mu.Unlock()
}

// List returns the definitions sorted by name.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
