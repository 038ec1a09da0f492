package ecs

// Registry tracks all component stores and supports bulk cleanup on entity destroy.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 8),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}

// ClearAll empties every registered store.
func (r *Registry) ClearAll() {
	for _, s := range r.stores {
		s.Clear()
	}
}

// Register creates a store for T and attaches it to the world's registry.
func Register[T any](w *World) *Store[T] {
	s := NewStore[T]()
	w.registry.Register(s)
	return s
}
