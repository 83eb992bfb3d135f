// Package router provides the route tree a Server uses to map request paths
// onto stream producers.
//
// Routes are hierarchical: a producer registered at /jobs also serves
// /jobs/42 unless something more specific is registered there.
package router

import "strings"

// Namespace is a path split into its segments.
type Namespace []string

// NS converts a slash-delimited string into a Namespace.
func NS(s string) Namespace {
	trimmed := strings.Trim(s, "/ ")
	if trimmed == "" {
		return Namespace{}
	}
	return Namespace(strings.Split(trimmed, "/"))
}

func (ns Namespace) String() string {
	return "/" + strings.Join(ns, "/")
}

// A Node holds at most one value of type V.
type Node[V any] struct {
	parent   *Node[V]
	children map[string]*Node[V]
	key      string
	value    V
	set      bool
}

// New returns a new root Node (without a parent)
func New[V any]() *Node[V] {
	return newNode[V](nil, "")
}

func newNode[V any](parent *Node[V], key string) *Node[V] {
	return &Node[V]{
		key:      key,
		parent:   parent,
		children: make(map[string]*Node[V]),
	}
}

// FindOrCreate will return the child Node at relative namespace ns, creating
// it if it does not already exist.
func (n *Node[V]) FindOrCreate(ns Namespace) *Node[V] {
	if len(ns) == 0 {
		return n
	}
	target, rest := ns[0], ns[1:]
	if _, exists := n.children[target]; !exists {
		n.children[target] = newNode(n, target)
	}
	return n.children[target].FindOrCreate(rest)
}

// Lookup walks towards ns and returns the deepest Node on the way that holds a
// value, or false if none does.
func (n *Node[V]) Lookup(ns Namespace) (*Node[V], bool) {
	var found *Node[V]
	cur := n
	for i := 0; ; i++ {
		if cur.set {
			found = cur
		}
		if i == len(ns) {
			break
		}
		next, ok := cur.children[ns[i]]
		if !ok {
			break
		}
		cur = next
	}
	return found, found != nil
}

/****************************************************************************
  Dealing with values
****************************************************************************/

// Value returns the value held by the Node, if any.
func (n *Node[V]) Value() (V, bool) {
	return n.value, n.set
}

// Set stores v at the Node, replacing any previous value.
func (n *Node[V]) Set(v V) {
	n.value, n.set = v, true
}

// InsertAt stores v at the target namespace relative to Node n.
//
// Returns address *Node where things were inserted.
func (n *Node[V]) InsertAt(ns Namespace, v V) *Node[V] {
	dst := n.FindOrCreate(ns)
	dst.Set(v)
	return dst
}

/****************************************************************************
  Graph traversal and relationships
****************************************************************************/

// TraverseDown visits the node & each descendent node, applying traverseFn
func (n *Node[V]) TraverseDown(traverseFn func(*Node[V])) {
	traverseFn(n)
	for _, c := range n.children {
		c.TraverseDown(traverseFn)
	}
}

// TraverseUp visits the node and each ancestor node, applying traverseFn
func (n *Node[V]) TraverseUp(traverseFn func(*Node[V])) {
	traverseFn(n)
	if n.parent != nil {
		n.parent.TraverseUp(traverseFn)
	}
}

// Namespace returns the fully-qualified namespace for a Node by walking up the
// tree. The root's namespace is empty.
func (n *Node[V]) Namespace() Namespace {
	keys := Namespace{}
	n.TraverseUp(func(a *Node[V]) {
		if a.parent != nil {
			keys = append(Namespace{a.key}, keys...)
		}
	})
	return keys
}
