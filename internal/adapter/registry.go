package adapter

import "fmt"

// Registry is the closed, build-time-populated map from dialect name to
// Adapter. The set of adapters is known at compile time; there is no
// dynamic loading. Registry is read-mostly: NewRegistry fills the map
// once during program initialization, before any request is served, and
// nothing adds to it afterwards, so no locking guards lookups.
type Registry struct {
	byName map[string]Adapter
}

// NewRegistry builds a Registry from a fixed set of adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byName: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.byName[a.Name()] = a
	}
	return r
}

// Get looks up an adapter by dialect name.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// MustGet looks up an adapter by name, panicking if absent. Used only at
// startup when wiring a route's configured adapter name is expected to
// exist because config validation already checked it.
func (r *Registry) MustGet(name string) Adapter {
	a, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("adapter: unknown dialect %q", name))
	}
	return a
}

// Names returns the registered dialect names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
