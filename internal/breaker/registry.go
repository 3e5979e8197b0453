package breaker

import (
	"sort"
	"sync"
)

// Registry holds one breaker per downstream dependency. It is built once at
// process start and handed to whatever needs it.
type Registry struct {
	cfg  Config
	opts []Option

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry whose breakers share cfg.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	return &Registry{cfg: cfg, opts: opts, breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.cfg, r.opts...)
	r.breakers[name] = b
	return b
}

// Snapshots reports every registered breaker, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	list := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		list = append(list, b)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, b := range list {
		out = append(out, b.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
