// Package world holds entities, their component stores and the ordinary
// parent/child hierarchy.
//
// The hierarchy here is the scene graph only. Physical joints live in the
// engine and are indexed separately by package relation.
package world

import (
	"reflect"
	"slices"

	"github.com/san-kum/grapple/internal/dynamo"
)

type remover interface {
	removeEntity(e dynamo.Entity)
}

type World struct {
	next     dynamo.Entity
	alive    map[dynamo.Entity]struct{}
	stores   map[reflect.Type]remover
	parent   map[dynamo.Entity]dynamo.Entity
	children map[dynamo.Entity][]dynamo.Entity

	transforms *Store[dynamo.Transform]
	names      *Store[string]

	onDespawn []func(dynamo.Entity)
}

func New() *World {
	w := &World{
		alive:    make(map[dynamo.Entity]struct{}),
		stores:   make(map[reflect.Type]remover),
		parent:   make(map[dynamo.Entity]dynamo.Entity),
		children: make(map[dynamo.Entity][]dynamo.Entity),
	}
	w.transforms = GetStore[dynamo.Transform](w)
	w.names = GetStore[string](w)
	return w
}

// GetStore returns the store for component type T, creating it on first use.
func GetStore[T any](w *World) *Store[T] {
	key := reflect.TypeOf((*T)(nil)).Elem()
	if s, ok := w.stores[key]; ok {
		return s.(*Store[T])
	}
	s := NewStore[T]()
	w.stores[key] = s
	return s
}

// Spawn allocates a new entity with an identity transform.
func (w *World) Spawn() dynamo.Entity {
	w.next++
	e := w.next
	w.alive[e] = struct{}{}
	w.transforms.Set(e, dynamo.Identity())
	return e
}

func (w *World) SpawnNamed(name string, t dynamo.Transform) dynamo.Entity {
	e := w.Spawn()
	w.names.Set(e, name)
	w.transforms.Set(e, t)
	return e
}

func (w *World) IsAlive(e dynamo.Entity) bool {
	_, ok := w.alive[e]
	return ok
}

// OnDespawn registers fn to run for every despawned entity, before its
// components are dropped.
func (w *World) OnDespawn(fn func(dynamo.Entity)) {
	w.onDespawn = append(w.onDespawn, fn)
}

// Despawn removes e and all of its hierarchy descendants.
func (w *World) Despawn(e dynamo.Entity) {
	if !w.IsAlive(e) {
		return
	}
	for _, c := range w.Children(e) {
		w.Despawn(c)
	}

	for _, fn := range w.onDespawn {
		fn(e)
	}

	w.RemoveParent(e)
	delete(w.children, e)
	for _, s := range w.stores {
		s.removeEntity(e)
	}
	delete(w.alive, e)
}

// Entities returns every live entity in ascending order.
func (w *World) Entities() []dynamo.Entity {
	out := make([]dynamo.Entity, 0, len(w.alive))
	for e := range w.alive {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

func (w *World) Name(e dynamo.Entity) string {
	if n, ok := w.names.Get(e); ok {
		return n
	}
	return e.String()
}

// SetParent makes child a hierarchy child of parent, keeping its local transform.
// Parenting an entity to itself or to a dead entity is ignored.
func (w *World) SetParent(child, parent dynamo.Entity) {
	if child == parent || !w.IsAlive(child) || !w.IsAlive(parent) {
		return
	}
	w.RemoveParent(child)
	w.parent[child] = parent
	w.children[parent] = append(w.children[parent], child)
}

func (w *World) RemoveParent(child dynamo.Entity) {
	p, ok := w.parent[child]
	if !ok {
		return
	}
	delete(w.parent, child)
	w.children[p] = slices.DeleteFunc(w.children[p], func(c dynamo.Entity) bool { return c == child })
	if len(w.children[p]) == 0 {
		delete(w.children, p)
	}
}

func (w *World) Parent(e dynamo.Entity) (dynamo.Entity, bool) {
	p, ok := w.parent[e]
	return p, ok
}

func (w *World) Children(e dynamo.Entity) []dynamo.Entity {
	return slices.Clone(w.children[e])
}

func (w *World) Transform(e dynamo.Entity) (dynamo.Transform, bool) {
	return w.transforms.Get(e)
}

func (w *World) SetTransform(e dynamo.Entity, t dynamo.Transform) {
	if !w.IsAlive(e) {
		return
	}
	w.transforms.Set(e, t)
}

// GlobalTransform composes local transforms up the ordinary parent chain.
// A cyclic chain is cut at the first repeated entity.
func (w *World) GlobalTransform(e dynamo.Entity) (dynamo.Transform, bool) {
	local, ok := w.transforms.Get(e)
	if !ok {
		return dynamo.Transform{}, false
	}

	global := local
	visited := map[dynamo.Entity]struct{}{e: {}}
	cur := e
	for {
		p, ok := w.parent[cur]
		if !ok {
			break
		}
		if _, seen := visited[p]; seen {
			break
		}
		visited[p] = struct{}{}
		pt, ok := w.transforms.Get(p)
		if !ok {
			break
		}
		global = pt.Mul(global)
		cur = p
	}
	return global, true
}

// ParentGlobal returns the global transform of e's parent, or identity for roots.
func (w *World) ParentGlobal(e dynamo.Entity) dynamo.Transform {
	if p, ok := w.parent[e]; ok {
		if g, ok := w.GlobalTransform(p); ok {
			return g
		}
	}
	return dynamo.Identity()
}

// SetGlobalTransform writes the local transform of e so that its global transform equals g.
func (w *World) SetGlobalTransform(e dynamo.Entity, g dynamo.Transform) {
	w.SetTransform(e, w.ParentGlobal(e).Inverse().Mul(g))
}
