// Package publisher defines the channel capability behind which every
// output platform sits, and the registry that resolves implementations
// by channel name.
package publisher

import (
	"context"
	"sort"
	"sync"
)

// Publisher is the capability contract for one output channel. Each
// implementation owns its own authentication, transport and per-request
// timeout; the caller only distinguishes success from failure.
type Publisher interface {
	// Name is the channel name used for routing (e.g. "linkedin").
	Name() string

	// Label is the human-readable channel name for summaries.
	Label() string

	// Publish delivers the text and optional image to the channel and
	// returns a short status message for the operator summary.
	Publish(ctx context.Context, text, imagePath string) (string, error)
}

// Registry resolves publishers strictly by channel name. An unknown
// name is a per-channel failure for the caller, never fatal.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Publisher
}

// NewRegistry creates a registry with the given publishers.
func NewRegistry(pubs ...Publisher) *Registry {
	r := &Registry{byName: make(map[string]Publisher, len(pubs))}
	for _, p := range pubs {
		r.byName[p.Name()] = p
	}
	return r
}

// Register adds or replaces a publisher.
func (r *Registry) Register(p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[p.Name()] = p
}

// Resolve returns the publisher for a channel name.
func (r *Registry) Resolve(name string) (Publisher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names returns the registered channel names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
