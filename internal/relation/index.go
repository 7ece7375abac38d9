// Package relation answers "what is this body attached to" over two graphs:
// the ordinary parent/child hierarchy kept by the world and the joint graph
// derived from the live joints of the physics engine.
package relation

import (
	"slices"

	"github.com/san-kum/grapple/internal/dynamo"
	"github.com/san-kum/grapple/internal/physics"
)

// Index is the joint adjacency for one tick. It is rebuilt from scratch
// every tick and never persisted.
type Index struct {
	parents  map[dynamo.Entity][]edge
	children map[dynamo.Entity][]edge
	edges    int
}

type edge struct {
	other dynamo.Entity
	tag   physics.JointTag
}

func NewIndex() *Index {
	return &Index{
		parents:  make(map[dynamo.Entity][]edge),
		children: make(map[dynamo.Entity][]edge),
	}
}

// Rebuild replaces the adjacency with the given joints, visited in
// ascending id order.
func (ix *Index) Rebuild(joints []physics.Joint) {
	clear(ix.parents)
	clear(ix.children)
	ix.edges = 0

	sorted := slices.Clone(joints)
	slices.SortFunc(sorted, func(a, b physics.Joint) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	for _, j := range sorted {
		if j.Child.IsNull() || j.Parent.IsNull() {
			continue
		}
		ix.parents[j.Child] = append(ix.parents[j.Child], edge{j.Parent, j.Tag})
		ix.children[j.Parent] = append(ix.children[j.Parent], edge{j.Child, j.Tag})
		ix.edges++
	}
}

// JointParents lists the bodies e is jointed to as a child.
func (ix *Index) JointParents(e dynamo.Entity) []dynamo.Entity {
	return others(ix.parents[e], true)
}

func (ix *Index) JointChildren(e dynamo.Entity) []dynamo.Entity {
	return others(ix.children[e], true)
}

func others(edges []edge, withGrab bool) []dynamo.Entity {
	var out []dynamo.Entity
	for _, ed := range edges {
		if withGrab || ed.tag != physics.TagGrab {
			out = append(out, ed.other)
		}
	}
	return out
}

func (ix *Index) Len() int { return ix.edges }
