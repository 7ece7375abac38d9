package world

import (
	"slices"

	"github.com/san-kum/grapple/internal/dynamo"
)

// Store is a container for one component type.
// Components are kept in a map; the entity list keeps iteration cheap.
type Store[T any] struct {
	components map[dynamo.Entity]T
	entities   []dynamo.Entity
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		components: make(map[dynamo.Entity]T),
		entities:   make([]dynamo.Entity, 0, 16),
	}
}

// Set inserts or replaces the component of e.
func (s *Store[T]) Set(e dynamo.Entity, val T) {
	if _, exists := s.components[e]; !exists {
		s.entities = append(s.entities, e)
	}
	s.components[e] = val
}

func (s *Store[T]) Get(e dynamo.Entity) (T, bool) {
	val, ok := s.components[e]
	return val, ok
}

func (s *Store[T]) Has(e dynamo.Entity) bool {
	_, ok := s.components[e]
	return ok
}

// Remove deletes the component of e and reports whether it existed.
func (s *Store[T]) Remove(e dynamo.Entity) bool {
	if _, exists := s.components[e]; !exists {
		return false
	}
	delete(s.components, e)
	for i, entity := range s.entities {
		if entity == e {
			s.entities[i] = s.entities[len(s.entities)-1]
			s.entities = s.entities[:len(s.entities)-1]
			break
		}
	}
	return true
}

// Entities returns the entities holding this component in ascending order,
// so systems visit them deterministically.
func (s *Store[T]) Entities() []dynamo.Entity {
	result := make([]dynamo.Entity, len(s.entities))
	copy(result, s.entities)
	slices.Sort(result)
	return result
}

func (s *Store[T]) Len() int {
	return len(s.entities)
}

// removeEntity lets the world strip despawned entities without knowing T.
func (s *Store[T]) removeEntity(e dynamo.Entity) {
	s.Remove(e)
}
