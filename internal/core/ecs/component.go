package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
	Clear()
}

// Store is a generic typed component store. Lookup goes through a map, while
// iteration walks a dense slice kept in insertion order so that every pass
// over a store visits entities in the same order on every run.
type Store[T any] struct {
	index map[EntityID]int
	ids   []EntityID
	data  []*T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		index: make(map[EntityID]int, 32),
		ids:   make([]EntityID, 0, 32),
		data:  make([]*T, 0, 32),
	}
}

// Set inserts or replaces the component for id. Replacing keeps the
// entity's position in iteration order.
func (s *Store[T]) Set(id EntityID, c *T) {
	if i, ok := s.index[id]; ok {
		s.data[i] = c
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.data = append(s.data, c)
}

func (s *Store[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.data[i], true
}

// Remove deletes id while preserving the relative order of the rest.
func (s *Store[T]) Remove(id EntityID) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	delete(s.index, id)
	copy(s.ids[i:], s.ids[i+1:])
	copy(s.data[i:], s.data[i+1:])
	last := len(s.ids) - 1
	s.data[last] = nil
	s.ids = s.ids[:last]
	s.data = s.data[:last]
	for j := i; j < len(s.ids); j++ {
		s.index[s.ids[j]] = j
	}
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.ids)
}

// IDs returns a copy of the stored entity IDs in iteration order.
func (s *Store[T]) IDs() []EntityID {
	out := make([]EntityID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Each visits components in insertion order. fn must not add or remove
// components of this store; collect IDs first when mutating.
func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.ids {
		fn(id, s.data[i])
	}
}

func (s *Store[T]) Clear() {
	clear(s.index)
	clear(s.data)
	s.ids = s.ids[:0]
	s.data = s.data[:0]
}
