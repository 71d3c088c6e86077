package backend

import (
	"sort"

	fkerrors "github.com/bnbong/FastAPI-fastkit-sub000/internal/errors"
)

// Registry maps backend identifiers to implementations. An unknown
// identifier fails fast with an unsupported-backend error; there is no
// fallback to a default.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a registry with every supported backend, sharing one
// runner.
func NewRegistry(runner *Runner) *Registry {
	r := &Registry{backends: make(map[string]Backend)}
	r.register(NewPip(runner))
	r.register(NewUv(runner))
	r.register(NewPdm(runner))
	r.register(NewPoetry(runner))

	return r
}

func (r *Registry) register(b Backend) {
	r.backends[b.Name()] = b
}

// Register adds or replaces a backend implementation. Used by tests and by
// callers embedding fastkit with a custom backend.
func (r *Registry) Register(b Backend) {
	r.register(b)
}

// Get returns the backend for the given identifier.
func (r *Registry) Get(id string) (Backend, error) {
	b, ok := r.backends[id]
	if !ok {
		return nil, fkerrors.UnsupportedBackend(id)
	}

	return b, nil
}

// IDs returns all registered identifiers, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.backends))
	for id := range r.backends {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
