package sorbe

import (
	"iter"
)

// Map is an insertion-ordered mapping from key segments to tree nodes. The
// zero value is an empty map. Maps returned by this package are never
// modified after they are returned.
type Map[T any] struct {
	keys   []string
	values map[string]T
}

// Len returns the number of entries.
func (m *Map[T]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The caller may modify the slice.
func (m *Map[T]) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Get returns the entry for key.
func (m *Map[T]) Get(key string) (T, bool) {
	if m == nil {
		var zero T
		return zero, false
	}
	v, ok := m.values[key]
	return v, ok
}

// All iterates over entries in insertion order.
func (m *Map[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// set inserts or replaces key. New keys go to the end.
func (m *Map[T]) set(key string, v T) {
	if m.values == nil {
		m.values = make(map[string]T)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// nodeKind lets one tree builder assemble both value and schema trees.
type nodeKind[T any] interface {
	// branch wraps m as an interior node.
	branch(m *Map[T]) T
	// children returns the map held by an interior node.
	children(n T) (*Map[T], bool)
}

// leaf is one entry to insert: a key path and the node stored at its end.
type leaf[T any] struct {
	keys []string
	node T
}

// buildTree inserts leaves into a fresh root map, creating interior nodes on
// demand. Paths must already be free of duplicates and prefix conflicts.
func buildTree[T any](kind nodeKind[T], leaves []leaf[T]) *Map[T] {
	root := &Map[T]{}
	for _, l := range leaves {
		m := root
		last := len(l.keys) - 1
		for _, k := range l.keys[:last] {
			n, ok := m.Get(k)
			if !ok {
				n = kind.branch(&Map[T]{})
				m.set(k, n)
			}
			child, ok := kind.children(n)
			if !ok {
				// Unreachable after checkPaths.
				panic("sorbe: key path " + k + " is a leaf")
			}
			m = child
		}
		m.set(l.keys[last], l.node)
	}

	return root
}
