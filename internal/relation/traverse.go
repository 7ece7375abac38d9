package relation

import (
	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/world"
)

// Follow selects which edges a traversal walks.
type Follow uint8

const (
	FollowHierarchy Follow = 1 << iota
	FollowJoints
	// FollowStructural walks every joint except grab joints, so a held
	// object is not part of the body holding it.
	FollowStructural

	FollowAll  = FollowHierarchy | FollowJoints
	FollowBody = FollowHierarchy | FollowStructural
)

// Graph combines the world hierarchy with a joint index.
type Graph struct {
	World *world.World
	Index *Index
}

func (g Graph) up(e dynamo.Entity, follow Follow) []dynamo.Entity {
	var out []dynamo.Entity
	if follow&FollowHierarchy != 0 && g.World != nil {
		if p, ok := g.World.Parent(e); ok {
			out = append(out, p)
		}
	}
	if g.Index != nil {
		switch {
		case follow&FollowJoints != 0:
			out = append(out, others(g.Index.parents[e], true)...)
		case follow&FollowStructural != 0:
			out = append(out, others(g.Index.parents[e], false)...)
		}
	}
	return out
}

func (g Graph) down(e dynamo.Entity, follow Follow) []dynamo.Entity {
	var out []dynamo.Entity
	if follow&FollowHierarchy != 0 && g.World != nil {
		out = append(out, g.World.Children(e)...)
	}
	if g.Index != nil {
		switch {
		case follow&FollowJoints != 0:
			out = append(out, others(g.Index.children[e], true)...)
		case follow&FollowStructural != 0:
			out = append(out, others(g.Index.children[e], false)...)
		}
	}
	return out
}

// FindParentWith returns the nearest ancestor of root, root excluded,
// satisfying pred. The search is breadth first so the nearest match wins.
func (g Graph) FindParentWith(root dynamo.Entity, pred func(dynamo.Entity) bool, follow Follow) (dynamo.Entity, bool) {
	visited := map[dynamo.Entity]struct{}{root: {}}
	frontier := g.up(root, follow)
	for len(frontier) > 0 {
		e := frontier[0]
		frontier = frontier[1:]
		if _, seen := visited[e]; seen {
			continue
		}
		visited[e] = struct{}{}
		if pred(e) {
			return e, true
		}
		frontier = append(frontier, g.up(e, follow)...)
	}
	return dynamo.Null, false
}

// FindParentOrSelfWith is FindParentWith that also considers root.
func (g Graph) FindParentOrSelfWith(root dynamo.Entity, pred func(dynamo.Entity) bool, follow Follow) (dynamo.Entity, bool) {
	if pred(root) {
		return root, true
	}
	return g.FindParentWith(root, pred, follow)
}

// FindChildrenWith returns every descendant of root, root excluded,
// satisfying pred, in discovery order.
func (g Graph) FindChildrenWith(root dynamo.Entity, pred func(dynamo.Entity) bool, follow Follow) []dynamo.Entity {
	var out []dynamo.Entity
	visited := map[dynamo.Entity]struct{}{root: {}}
	stack := reversed(g.down(root, follow))
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[e]; seen {
			continue
		}
		visited[e] = struct{}{}
		if pred(e) {
			out = append(out, e)
		}
		stack = append(stack, reversed(g.down(e, follow))...)
	}
	return out
}

// LogicalRoot walks up to the topmost ancestor of e.
func (g Graph) LogicalRoot(e dynamo.Entity, follow Follow) dynamo.Entity {
	visited := map[dynamo.Entity]struct{}{e: {}}
	cur := e
	for {
		next := dynamo.Null
		for _, p := range g.up(cur, follow) {
			if _, seen := visited[p]; !seen {
				next = p
				break
			}
		}
		if next.IsNull() {
			return cur
		}
		visited[next] = struct{}{}
		cur = next
	}
}

// Members returns root followed by all of its descendants.
func (g Graph) Members(root dynamo.Entity, follow Follow) []dynamo.Entity {
	all := func(dynamo.Entity) bool { return true }
	return append([]dynamo.Entity{root}, g.FindChildrenWith(root, all, follow)...)
}

func reversed(es []dynamo.Entity) []dynamo.Entity {
	out := make([]dynamo.Entity, len(es))
	for i, e := range es {
		out[len(es)-1-i] = e
	}
	return out
}
