package transform

import (
	"sort"
	"sync"
)

// Registry maps operation names to operations.
//
// A Registry is populated once at startup (see NewCatalogue) and read
// concurrently afterwards. The lock keeps later re-registration safe.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds op under op.Name.
// An existing entry with the same name is replaced.
func (r *Registry) Register(op Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.Name] = op
}

// Get returns the operation registered under name.
// Returns false if not found.
func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.ops[name]
	return op, ok
}

// List returns a copy of all registered operations keyed by name.
func (r *Registry) List() map[string]Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Operation, len(r.ops))
	for k, v := range r.ops {
		out[k] = v
	}
	return out
}

// Names returns all registered names.
// Sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.ops))
	for n := range r.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered operations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ops)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
